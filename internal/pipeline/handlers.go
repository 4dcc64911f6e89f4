package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/parsers"
	"github.com/benvon/time-import/internal/services/ai"
	"go.uber.org/zap"
)

// Handwriting caps a candidate's confidence at this value, or lower when OCR is unsure
const HandwritingConfidenceCap = 0.4

func handleDelimited(ctx context.Context, r *run, src models.Source, report *models.SourceReport) error {
	text, err := src.Text()
	if err != nil {
		return err
	}
	table := parsers.ParseDelimited(text)
	if len(table.Headers) == 0 {
		return fmt.Errorf("no header row found")
	}
	r.extractTable(ctx, table, src, report)
	return nil
}

func handleSpreadsheet(ctx context.Context, r *run, src models.Source, report *models.SourceReport) error {
	data, err := src.Bytes()
	if err != nil {
		return err
	}
	sheet := ""
	if src.SheetName != nil {
		sheet = *src.SheetName
	}
	tables, err := parsers.ReadWorkbook(data, sheet)
	if err != nil {
		return err
	}
	for _, table := range tables {
		r.extractTable(ctx, table, src, report)
	}
	return nil
}

func handleFreeText(ctx context.Context, r *run, src models.Source, report *models.SourceReport) error {
	text, err := src.Text()
	if err != nil {
		return err
	}
	result := parsers.ParseFreeText(text, sourceRef(src))
	if len(result.Candidates) == 0 && strings.TrimSpace(text) != "" {
		if parsed, ok := r.parseFreeform(ctx, text, src); ok {
			result.Candidates = parsed
			result.UnparsedLines = nil
		}
	}
	r.add(result, report, false)
	return nil
}

func handleImage(ctx context.Context, r *run, src models.Source, report *models.SourceReport) error {
	uri, err := src.DataURI()
	if err != nil {
		return err
	}
	ocr, err := r.p.collaborator.RecognizeText(ctx, ai.RecognizeTextRequest{Image: uri})
	if err != nil {
		r.p.logCollaboratorFailure("recognize_text", err, zap.String("source_id", src.ID.String()))
		return fmt.Errorf("text recognition unavailable: %w", err)
	}

	result := parsers.ParseFreeText(ocr.Text, sourceRef(src))
	if ocr.IsHandwritten {
		ocrConfidence := models.ClampConfidence(ocr.Confidence)
		for _, c := range result.Candidates {
			c.SetConfidence(min(HandwritingConfidenceCap, c.Confidence*ocrConfidence))
			c.AddFlag(models.FlagHandwritten)
		}
	}
	r.add(result, report, false)
	return nil
}

// extractTable resolves a mapping for table and extracts its rows. The export header set
// takes the fast path and skips enrichment.
func (r *run) extractTable(ctx context.Context, table parsers.Table, src models.Source, report *models.SourceReport) {
	ref := sourceRef(src)

	if models.MatchesExportHeaders(table.Headers) {
		report.Mapping = models.ExportMapping()
		report.MappingOrigin = models.MappingOriginKnownSchema
		r.add(parsers.ExtractExport(table, ref), report, true)
		return
	}

	mapping, origin := r.resolveMapping(ctx, table, src)
	if report.MappingOrigin == "" || origin != models.MappingOriginNone {
		report.Mapping = mapping
		report.MappingOrigin = origin
	}
	r.add(parsers.ExtractRows(table, mapping, parsers.ExtractOptions{Ref: ref}), report, false)
}

// resolveMapping tries the caller's mapping, then keyword auto mapping, then the collaborator
func (r *run) resolveMapping(ctx context.Context, table parsers.Table, src models.Source) (models.ColumnMapping, models.MappingOrigin) {
	if mappingApplies(r.req.Mapping, table.Headers) {
		return r.req.Mapping, models.MappingOriginCaller
	}
	if mapping, ok := parsers.AutoMap(table.Headers, r.p.keywords); ok {
		return mapping, models.MappingOriginAuto
	}

	resp, err := r.p.collaborator.MapColumns(ctx, ai.MapColumnsRequest{
		Headers:    table.Headers,
		SampleRows: table.SampleRows(5),
	})
	if err != nil {
		r.p.logCollaboratorFailure("map_columns", err, zap.String("source_id", src.ID.String()))
		return models.ColumnMapping{}, models.MappingOriginNone
	}
	if resp == nil || resp.Mapping.IsEmpty() {
		return models.ColumnMapping{}, models.MappingOriginNone
	}
	return resp.Mapping, models.MappingOriginCollaborator
}

func mappingApplies(mapping models.ColumnMapping, headers []string) bool {
	if mapping.IsEmpty() {
		return false
	}
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}
	for _, header := range mapping {
		if present[strings.ToLower(strings.TrimSpace(header))] {
			return true
		}
	}
	return false
}

func sourceRef(src models.Source) models.SourceRef {
	return models.SourceRef{SourceID: src.ID, Filename: src.Filename}
}

func (p *Pipeline) logCollaboratorFailure(operation string, err error, fields ...zap.Field) {
	reason := "error"
	switch {
	case ai.IsAuthorizationError(err):
		reason = "authorization_required"
	case ai.IsRateLimitError(err):
		reason = "rate_limited"
	}
	fields = append(fields,
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	)
	p.logger.Warn("collaborator_call_failed", fields...)
}
