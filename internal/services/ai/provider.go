package ai

import (
	"context"

	"github.com/benvon/time-import/internal/models"
	"go.uber.org/zap"
)

// Collaborator is the enrichment service consumed by the import pipeline. Every call is
// best-effort from the pipeline's point of view.
type Collaborator interface {
	// MapColumns proposes a header mapping for a table whose headers were not recognized
	MapColumns(ctx context.Context, req MapColumnsRequest) (*MapColumnsResponse, error)

	// GuessCategories proposes a category for each text, chosen from the user's categories
	GuessCategories(ctx context.Context, req GuessCategoriesRequest) (*GuessCategoriesResponse, error)

	// ParseFreeform extracts time entries from unstructured content
	ParseFreeform(ctx context.Context, req ParseFreeformRequest) (*ParseFreeformResponse, error)

	// RecognizeText runs OCR on an image
	RecognizeText(ctx context.Context, req RecognizeTextRequest) (*RecognizeTextResponse, error)
}

// MapColumnsRequest carries the headers and a few sample rows of a table
type MapColumnsRequest struct {
	Headers    []string   `json:"headers"`
	SampleRows [][]string `json:"sampleRows"`
}

// MapColumnsResponse maps fields to header names
type MapColumnsResponse struct {
	Mapping    models.ColumnMapping `json:"mapping"`
	Confidence float64              `json:"confidence"`
}

// GuessCategoriesRequest asks for one guess per text
type GuessCategoriesRequest struct {
	Texts          []string `json:"texts"`
	UserCategories []string `json:"userCategories"`
}

// CategoryGuess is one guess; Category is nil when nothing fits
type CategoryGuess struct {
	Text       string  `json:"text"`
	Category   *string `json:"category"`
	Confidence float64 `json:"confidence"`
}

// GuessCategoriesResponse holds the guesses in request order
type GuessCategoriesResponse struct {
	Guesses []CategoryGuess `json:"guesses"`
}

// ParseFreeformRequest carries whole-source content
type ParseFreeformRequest struct {
	Content    string   `json:"content"`
	Categories []string `json:"categories"`
}

// FreeformCandidate is a candidate as returned by the collaborator, before ids and flags
type FreeformCandidate struct {
	Date            *string `json:"date"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	DurationMinutes *int    `json:"durationMinutes"`
	CategoryGuess   string  `json:"categoryGuess"`
	Note            string  `json:"note"`
	Confidence      float64 `json:"confidence"`
}

// ParseFreeformResponse holds the extracted candidates
type ParseFreeformResponse struct {
	Candidates []FreeformCandidate `json:"candidates"`
}

// RecognizeTextRequest carries an image as a data URI
type RecognizeTextRequest struct {
	Image string `json:"image"`
}

// RecognizeTextResponse is the OCR result
type RecognizeTextResponse struct {
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	IsHandwritten bool    `json:"isHandwritten"`
}

// ProviderConfig configures a provider created through the registry
type ProviderConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Logger      *zap.Logger
	DebugMode   bool
}

// ProviderFactory creates a collaborator from configuration
type ProviderFactory func(cfg ProviderConfig) (Collaborator, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// DefaultRegistry knows the "openai" and "disabled" providers
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.Register("openai", func(cfg ProviderConfig) (Collaborator, error) {
		if cfg.APIKey == "" {
			return NewDisabledCollaborator(), nil
		}
		return NewOpenAIProvider(cfg), nil
	})
	r.Register("disabled", func(ProviderConfig) (Collaborator, error) {
		return NewDisabledCollaborator(), nil
	})
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, cfg ProviderConfig) (Collaborator, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
