package commands

import (
	"fmt"

	"github.com/benvon/time-import/internal/bootstrap"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/parsers"
	"github.com/spf13/cobra"
)

// DetectedTable is the header row of one table and the mapping the keywords produce for it
type DetectedTable struct {
	Sheet   string               `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Headers []string             `json:"headers" yaml:"headers"`
	Rows    int                  `json:"rows" yaml:"rows"`
	Mapping models.ColumnMapping `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}

// Detection describes how a file would be handled by an import
type Detection struct {
	Filename  string            `json:"filename" yaml:"filename"`
	Type      models.SourceType `json:"type" yaml:"type"`
	MimeType  string            `json:"mime_type" yaml:"mime_type"`
	SizeBytes int64             `json:"size_bytes" yaml:"size_bytes"`
	Tables    []DetectedTable   `json:"tables,omitempty" yaml:"tables,omitempty"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewDetectCmd creates the detect command, which reports source types and auto-mappings
func NewDetectCmd() *cobra.Command {
	var (
		output       string
		keywordsFile string
	)

	cmd := &cobra.Command{
		Use:   "detect FILE...",
		Short: "Show how files would be classified and mapped",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			keywords, err := bootstrap.Keywords(keywordsFile)
			if err != nil {
				return err
			}
			sources, err := readSources(args, "")
			if err != nil {
				return err
			}

			detections := make([]Detection, 0, len(sources))
			for _, src := range sources {
				detections = append(detections, detect(src, keywords))
			}
			return writeOutput(cmd.OutOrStdout(), output, detections)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: json or yaml")
	cmd.Flags().StringVar(&keywordsFile, "keywords", "", "YAML file overriding the column keyword lists")
	return cmd
}

func detect(src models.Source, keywords parsers.Keywords) Detection {
	d := Detection{
		Filename:  src.Filename,
		Type:      src.Type,
		SizeBytes: src.SizeBytes,
	}
	if src.MimeType != nil {
		d.MimeType = *src.MimeType
	}

	var tables []parsers.Table
	switch src.Type {
	case models.SourceTypeDelimited, models.SourceTypeExport:
		text, err := src.Text()
		if err != nil {
			d.Error = err.Error()
			return d
		}
		tables = []parsers.Table{parsers.ParseDelimited(text)}
	case models.SourceTypeSpreadsheet:
		data, err := src.Bytes()
		if err != nil {
			d.Error = err.Error()
			return d
		}
		if tables, err = parsers.ReadWorkbook(data, ""); err != nil {
			d.Error = fmt.Sprintf("failed to read workbook: %v", err)
			return d
		}
	default:
		return d
	}

	for _, t := range tables {
		dt := DetectedTable{Sheet: t.Sheet, Headers: t.Headers, Rows: len(t.Rows)}
		if src.Type == models.SourceTypeExport {
			dt.Mapping = models.ExportMapping()
		} else if mapping, ok := parsers.AutoMap(t.Headers, keywords); ok {
			dt.Mapping = mapping
		}
		d.Tables = append(d.Tables, dt)
	}
	return d
}
