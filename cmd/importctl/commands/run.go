package commands

import (
	"fmt"

	"github.com/benvon/time-import/internal/bootstrap"
	"github.com/benvon/time-import/internal/config"
	"github.com/benvon/time-import/internal/logger"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/pipeline"
	"github.com/benvon/time-import/internal/ratelimit"
	"github.com/benvon/time-import/internal/services/ai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRunCmd creates the run command, which builds a draft batch from local files
func NewRunCmd() *cobra.Command {
	var (
		local        localFlags
		output       string
		text         string
		keywordsFile string
		mappingFlag  map[string]string
		useAI        bool
		showProgress bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "run [FILE...]",
		Short: "Build a draft import batch from files",
		Long: "Parse, validate and de-duplicate the given files (and --text) against the local store " +
			"and print the resulting draft batch. Nothing is committed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			sources, err := readSources(args, text)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return fmt.Errorf("no input: pass at least one file or --text")
			}
			mapping, err := parseMappingFlag(mappingFlag)
			if err != nil {
				return err
			}
			keywords, err := bootstrap.Keywords(keywordsFile)
			if err != nil {
				return err
			}
			userID, err := local.userID()
			if err != nil {
				return err
			}

			log := zap.NewNop()
			if verbose {
				if log, err = logger.NewDevelopmentLogger(false); err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				defer func() { _ = log.Sync() }()
			}

			store, err := local.open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			var collaborator ai.Collaborator
			if useAI {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				collaborator, err = bootstrap.Collaborator(cmd.Context(), cfg, ratelimit.NewMemoryStore(), nil, log, verbose)
				if err != nil {
					return err
				}
			}

			req := pipeline.Request{
				UserID:  userID,
				Sources: sources,
				Mapping: mapping,
			}
			if showProgress {
				stderr := cmd.ErrOrStderr()
				req.Progress = func(p models.Progress) {
					if p.Filename != "" {
						fmt.Fprintf(stderr, "%s %d/%d %s\n", p.Stage, p.Current, p.Total, p.Filename)
						return
					}
					fmt.Fprintf(stderr, "%s %d/%d\n", p.Stage, p.Current, p.Total)
				}
			}

			p := pipeline.New(collaborator, store, log, pipeline.WithKeywords(keywords))
			batch, err := p.Run(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), output, batch.WithoutSourceContent())
		},
	}

	local.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: json or yaml")
	cmd.Flags().StringVar(&text, "text", "", "Free text to import alongside the files")
	cmd.Flags().StringVar(&keywordsFile, "keywords", "", "YAML file overriding the column keyword lists")
	cmd.Flags().StringToStringVar(&mappingFlag, "mapping", nil, "Column mapping as field=header pairs (e.g. date=Datum,duration=Dauer)")
	cmd.Flags().BoolVar(&useAI, "ai", false, "Use the AI collaborator configured through the environment")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "Print progress to stderr")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline events to stderr")

	return cmd
}
