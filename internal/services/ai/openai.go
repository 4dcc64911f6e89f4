package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIVisionModel is the default model for OCR
	DefaultOpenAIVisionModel = "gpt-4o"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second
	// MaxFreeformInputBytes caps the content sent for free-form parsing
	MaxFreeformInputBytes = 20000
	// MaxCategoryTexts caps the texts sent in one category request
	MaxCategoryTexts = 200
)

// OpenAIProvider implements Collaborator using OpenAI's chat completions API
type OpenAIProvider struct {
	client      openai.Client
	model       string
	visionModel string
	logger      *zap.Logger
	debugMode   bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultOpenAIVisionModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:      client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		logger:      logger,
		debugMode:   cfg.DebugMode,
	}
}

// MapColumns implements Collaborator
func (p *OpenAIProvider) MapColumns(ctx context.Context, req MapColumnsRequest) (*MapColumnsResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(mapColumnsSystemPrompt),
		openai.UserMessage(buildMapColumnsPrompt(req)),
	}
	content, err := p.complete(ctx, "map_columns", p.model, messages)
	if err != nil {
		return nil, err
	}

	var resp MapColumnsResponse
	if err := decodeJSONContent(content, &resp); err != nil {
		return nil, err
	}
	resp.Mapping = sanitizeMapping(resp.Mapping, req.Headers)
	return &resp, nil
}

// GuessCategories implements Collaborator
func (p *OpenAIProvider) GuessCategories(ctx context.Context, req GuessCategoriesRequest) (*GuessCategoriesResponse, error) {
	if len(req.Texts) == 0 {
		return &GuessCategoriesResponse{}, nil
	}
	if len(req.Texts) > MaxCategoryTexts {
		return nil, fmt.Errorf("%w: %d texts, at most %d", ErrInputTooLarge, len(req.Texts), MaxCategoryTexts)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(guessCategoriesSystemPrompt),
		openai.UserMessage(buildGuessCategoriesPrompt(req)),
	}
	content, err := p.complete(ctx, "guess_categories", p.model, messages)
	if err != nil {
		return nil, err
	}

	var resp GuessCategoriesResponse
	if err := decodeJSONContent(content, &resp); err != nil {
		return nil, err
	}
	resp.Guesses = restrictGuesses(resp.Guesses, req.UserCategories)
	return &resp, nil
}

// ParseFreeform implements Collaborator
func (p *OpenAIProvider) ParseFreeform(ctx context.Context, req ParseFreeformRequest) (*ParseFreeformResponse, error) {
	if len(req.Content) > MaxFreeformInputBytes {
		return nil, fmt.Errorf("%w: %d bytes, at most %d", ErrInputTooLarge, len(req.Content), MaxFreeformInputBytes)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(parseFreeformSystemPrompt),
		openai.UserMessage(buildParseFreeformPrompt(req)),
	}
	content, err := p.complete(ctx, "parse_freeform", p.model, messages)
	if err != nil {
		return nil, err
	}

	var resp ParseFreeformResponse
	if err := decodeJSONContent(content, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecognizeText implements Collaborator
func (p *OpenAIProvider) RecognizeText(ctx context.Context, req RecognizeTextRequest) (*RecognizeTextResponse, error) {
	if req.Image == "" {
		return nil, fmt.Errorf("image is required")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(recognizeTextSystemPrompt),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart("Transcribe this time sheet."),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    req.Image,
				Detail: "high",
			}),
		}),
	}
	content, err := p.complete(ctx, "recognize_text", p.visionModel, messages)
	if err != nil {
		return nil, err
	}

	var resp RecognizeTextResponse
	if err := decodeJSONContent(content, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// complete sends one JSON-mode chat completion and returns the message content
func (p *OpenAIProvider) complete(ctx context.Context, operation, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := ExtractRequestID(ctx)
	userID := ExtractUserID(ctx)
	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", model),
			zap.Int("message_count", len(messages)),
			zap.String("user_id", userID),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", model),
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to %s: %w", operationVerb(operation), apiErr)
		}
		return "", fmt.Errorf("failed to %s: %w", operationVerb(operation), err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesInResponse
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userID),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}

func operationVerb(operation string) string {
	switch operation {
	case "map_columns":
		return "map columns"
	case "guess_categories":
		return "guess categories"
	case "parse_freeform":
		return "parse free-form content"
	case "recognize_text":
		return "recognize text"
	default:
		return operation
	}
}

// decodeJSONContent unmarshals a JSON object, tolerating prose around it
func decodeJSONContent(content string, v any) error {
	raw := []byte(content)
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start == -1 || end <= start {
		return fmt.Errorf("failed to parse response: no JSON object found")
	}
	if err := json.Unmarshal(raw[start:end+1], v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

var _ Collaborator = (*OpenAIProvider)(nil)
