// Package pipeline turns a list of sources into a draft batch of reviewed-ready candidates.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/time-import/internal/duplicates"
	"github.com/benvon/time-import/internal/logger"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/parsers"
	"github.com/benvon/time-import/internal/services/ai"
	"github.com/benvon/time-import/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/benvon/time-import/internal/pipeline"

// ErrUserRequired is returned when a run has no owning user
var ErrUserRequired = errors.New("user id is required")

// EntryStore is the storage collaborator: what the user already has
type EntryStore interface {
	ListStoredEntries(ctx context.Context, userID uuid.UUID) ([]models.StoredEntry, error)
	ListCategoryNames(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// ProgressFunc receives progress notifications; it is called synchronously
type ProgressFunc func(models.Progress)

// Request is one pipeline run
type Request struct {
	UserID uuid.UUID
	// BatchID is the id of the resulting batch; zero assigns a new one
	BatchID uuid.UUID
	Sources []models.Source
	// Mapping is applied to tabular sources whose headers contain at least one mapped header
	Mapping  models.ColumnMapping
	Progress ProgressFunc
}

// sourceHandler extracts candidates from one source and fills in its report
type sourceHandler func(ctx context.Context, r *run, src models.Source, report *models.SourceReport) error

// Pipeline runs imports. It is safe for concurrent use; each Run is sequential.
type Pipeline struct {
	collaborator ai.Collaborator
	store        EntryStore
	keywords     parsers.Keywords
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
	handlers     map[models.SourceType]sourceHandler
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithKeywords replaces the auto-mapping keyword lists
func WithKeywords(k parsers.Keywords) Option {
	return func(p *Pipeline) {
		p.keywords = k
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithTracerProvider traces runs with tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		p.tracer = tp.Tracer(tracerName)
	}
}

// New creates a pipeline. collaborator and store may be nil: enrichment and stored-entry
// checks are then skipped.
func New(collaborator ai.Collaborator, store EntryStore, logger *zap.Logger, opts ...Option) *Pipeline {
	if collaborator == nil {
		collaborator = ai.NewDisabledCollaborator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		collaborator: collaborator,
		store:        store,
		keywords:     parsers.DefaultKeywords(),
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.handlers = map[models.SourceType]sourceHandler{
		models.SourceTypeDelimited:   handleDelimited,
		models.SourceTypeExport:      handleDelimited,
		models.SourceTypeSpreadsheet: handleSpreadsheet,
		models.SourceTypeFreeText:    handleFreeText,
		models.SourceTypeImage:       handleImage,
	}
	for _, t := range models.AllSourceTypes {
		if _, ok := p.handlers[t]; !ok {
			panic(fmt.Sprintf("pipeline: no handler for source type %s", t))
		}
	}
	return p
}

// run holds the state of one Run
type run struct {
	p          *Pipeline
	req        Request
	categories []string
	candidates []*models.Candidate
	// skipEnrichment marks candidates from the known-schema fast path
	skipEnrichment map[uuid.UUID]bool
}

func (r *run) progress(stage models.Stage, current, total int, filename string) {
	if r.req.Progress == nil {
		return
	}
	r.req.Progress(models.Progress{Stage: stage, Current: current, Total: total, Filename: filename})
}

// Run processes the sources in order and returns a draft batch. Malformed sources and
// collaborator failures are reported in the batch, never returned as errors.
func (p *Pipeline) Run(ctx context.Context, req Request) (*models.Batch, error) {
	if req.UserID == uuid.Nil {
		return nil, ErrUserRequired
	}
	ctx = ai.WithUserID(ctx, req.UserID)
	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.Int("sources", len(req.Sources))))
	defer span.End()

	started := p.now()
	r := &run{p: p, req: req, skipEnrichment: make(map[uuid.UUID]bool)}
	r.categories = p.loadCategories(ctx, req.UserID)

	total := len(req.Sources)
	reports := make([]models.SourceReport, 0, total)
	for i, src := range req.Sources {
		r.progress(models.StageParsing, i+1, total, src.Filename)
		reports = append(reports, r.parseSource(ctx, src))
	}

	r.guessCategories(ctx)

	r.progress(models.StageValidating, total, total, "")
	_, vspan := p.tracer.Start(ctx, "pipeline.validate")
	validation.NewValidator(r.categories).ValidateBatch(r.candidates)
	vspan.End()

	r.progress(models.StageCheckingDuplicates, total, total, "")
	dctx, dspan := p.tracer.Start(ctx, "pipeline.duplicates")
	stored := p.loadStoredEntries(dctx, req.UserID)
	dups := duplicates.Detect(r.candidates, stored)
	dspan.End()

	applyDefaultSelection(r.candidates)
	issues := validation.BuildIssues(r.candidates)

	batchID := req.BatchID
	if batchID == uuid.Nil {
		batchID = uuid.New()
	}
	batch := &models.Batch{
		ID:            batchID,
		CreatedAt:     started,
		UserID:        req.UserID,
		Sources:       req.Sources,
		Candidates:    r.candidates,
		Issues:        issues,
		Stats:         ComputeStats(r.candidates, issues),
		Status:        models.BatchStatusDraft,
		SourceReports: reports,
	}
	if batch.Sources == nil {
		batch.Sources = []models.Source{}
	}
	if batch.Candidates == nil {
		batch.Candidates = []*models.Candidate{}
	}

	r.progress(models.StageDone, total, total, "")
	span.SetAttributes(
		attribute.Int("candidates", len(batch.Candidates)),
		attribute.Int("issues", len(issues)),
	)
	p.logger.Info("import_batch_built",
		zap.String("batch_id", batch.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.Int("sources", total),
		zap.Int("candidates", len(batch.Candidates)),
		zap.Int("issues", len(issues)),
		zap.Int("duplicates_in_batch", dups.InBatch),
		zap.Int("duplicates_stored", dups.Stored),
		zap.Duration("duration", p.now().Sub(started)),
	)
	return batch, nil
}

// parseSource dispatches src to its handler. A handler error becomes the report's error.
func (r *run) parseSource(ctx context.Context, src models.Source) models.SourceReport {
	ctx, span := r.p.tracer.Start(ctx, "pipeline.parse_source",
		trace.WithAttributes(attribute.String("source_type", string(src.Type))))
	defer span.End()

	report := models.SourceReport{
		SourceID: src.ID,
		Filename: src.Filename,
		Type:     src.Type,
	}
	before := len(r.candidates)

	if err := validation.ValidateSource(src); err != nil {
		report.Error = err.Error()
	} else if err := r.p.handlers[src.Type](ctx, r, src, &report); err != nil {
		report.Error = err.Error()
	}

	if report.Error != "" {
		span.RecordError(errors.New(report.Error))
		r.p.logger.Warn("source_parse_failed",
			zap.String("source_id", src.ID.String()),
			zap.String("filename", logger.SanitizeFilename(src.Filename)),
			zap.String("source_type", string(src.Type)),
			zap.String("error", report.Error),
		)
	}
	report.CandidateCount = len(r.candidates) - before
	return report
}

func (r *run) add(result parsers.Result, report *models.SourceReport, fastPath bool) {
	for _, c := range result.Candidates {
		if fastPath {
			r.skipEnrichment[c.ID] = true
		}
		r.candidates = append(r.candidates, c)
	}
	report.SkippedRows += result.SkippedRows
	report.UnparsedLines = append(report.UnparsedLines, result.UnparsedLines...)
}

func (p *Pipeline) loadCategories(ctx context.Context, userID uuid.UUID) []string {
	if p.store == nil {
		return nil
	}
	names, err := p.store.ListCategoryNames(ctx, userID)
	if err != nil {
		p.logger.Warn("category_lookup_failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	if names == nil {
		names = []string{}
	}
	return names
}

func (p *Pipeline) loadStoredEntries(ctx context.Context, userID uuid.UUID) []models.StoredEntry {
	if p.store == nil {
		return nil
	}
	entries, err := p.store.ListStoredEntries(ctx, userID)
	if err != nil {
		p.logger.Warn("stored_entries_lookup_failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	return entries
}

// applyDefaultSelection deselects candidates the user most likely does not want imported
func applyDefaultSelection(candidates []*models.Candidate) {
	for _, c := range candidates {
		if c.HasFlag(models.FlagHardBlock) || c.HasFlag(models.FlagSummaryRow) || c.HasFlag(models.FlagDuplicateSuspect) {
			c.Selected = false
		}
	}
}
