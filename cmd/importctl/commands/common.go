// Package commands implements the importctl subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benvon/time-import/internal/localstore"
	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"

	// localIssuer namespaces user ids derived from --user names
	localIssuer = "importctl"
	defaultUser = "local"
)

// localFlags are shared by every command that works on the SQLite store
type localFlags struct {
	dbPath string
	user   string
}

func (f *localFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dbPath, "db", "", "SQLite database path (default: user config dir)")
	cmd.Flags().StringVar(&f.user, "user", defaultUser, "User name or UUID owning the data")
}

func (f *localFlags) open() (*localstore.Store, error) {
	path := f.dbPath
	if path == "" {
		var err error
		if path, err = localstore.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	store, err := localstore.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return store, nil
}

func (f *localFlags) userID() (uuid.UUID, error) {
	name := strings.TrimSpace(f.user)
	if name == "" {
		return uuid.Nil, fmt.Errorf("--user must not be empty")
	}
	return models.PrincipalFromSubject(localIssuer, name, "").UserID, nil
}

func closeStore(store *localstore.Store) {
	if err := store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close local store: %v\n", err)
	}
}

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

// readSources loads each file as a source. An empty text adds nothing.
func readSources(paths []string, text string) ([]models.Source, error) {
	sources := make([]models.Source, 0, len(paths)+1)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		sources = append(sources, models.NewSource(filepath.Base(p), data, time.Now()))
	}
	if strings.TrimSpace(text) != "" {
		sources = append(sources, models.NewTextSource("", text, time.Now()))
	}
	return sources, nil
}

// parseMappingFlag turns field=header pairs into a column mapping
func parseMappingFlag(raw map[string]string) (models.ColumnMapping, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	mapping := make(models.ColumnMapping, len(raw))
	for field, header := range raw {
		f := models.Field(strings.TrimSpace(field))
		if !models.IsValidField(f) {
			return nil, fmt.Errorf("unknown mapping field %q", field)
		}
		mapping[f] = strings.TrimSpace(header)
	}
	return mapping, nil
}
