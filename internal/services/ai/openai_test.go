package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/time-import/internal/models"
)

// newTestServer answers chat completions with content, or with an API error when status is not 200
func newTestServer(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(content))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestProvider(url string) *OpenAIProvider {
	return NewOpenAIProvider(ProviderConfig{APIKey: "sk-test", BaseURL: url})
}

func TestOpenAIProvider_MapColumns(t *testing.T) {
	t.Parallel()

	var seen map[string]any
	server := newTestServer(t, http.StatusOK,
		`{"mapping": {"date": "Tag", "note": "Was", "colour": "Farbe", "duration": "Ghost"}, "confidence": 0.7}`, &seen)
	defer server.Close()

	resp, err := newTestProvider(server.URL).MapColumns(context.Background(), MapColumnsRequest{
		Headers:    []string{"Tag", "Was", "Farbe"},
		SampleRows: [][]string{{"15.01.2024", "Planning", "red"}},
	})
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	if resp.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7", resp.Confidence)
	}
	want := models.ColumnMapping{models.FieldDate: "Tag", models.FieldNote: "Was"}
	if len(resp.Mapping) != len(want) || resp.Mapping[models.FieldDate] != "Tag" || resp.Mapping[models.FieldNote] != "Was" {
		t.Errorf("Mapping = %v, want %v", resp.Mapping, want)
	}

	if seen["model"] != DefaultOpenAIModel {
		t.Errorf("model = %v, want %s", seen["model"], DefaultOpenAIModel)
	}
	if format, ok := seen["response_format"].(map[string]any); !ok || format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", seen["response_format"])
	}
}

func TestOpenAIProvider_GuessCategories(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.StatusOK,
		"Sure! {\"guesses\": [{\"text\": \"standup\", \"category\": \"meetings\", \"confidence\": 0.9},"+
			" {\"text\": \"lunch\", \"category\": \"Food\", \"confidence\": 0.4}]}", nil)
	defer server.Close()

	resp, err := newTestProvider(server.URL).GuessCategories(context.Background(), GuessCategoriesRequest{
		Texts:          []string{"standup", "lunch"},
		UserCategories: []string{"Meetings", "Development"},
	})
	if err != nil {
		t.Fatalf("GuessCategories() error = %v", err)
	}
	if len(resp.Guesses) != 2 {
		t.Fatalf("len(Guesses) = %d, want 2", len(resp.Guesses))
	}
	if c := resp.Guesses[0].Category; c == nil || *c != "Meetings" {
		t.Errorf("first guess = %v, want Meetings", c)
	}
	if resp.Guesses[1].Category != nil {
		t.Errorf("unknown category should be nulled, got %q", *resp.Guesses[1].Category)
	}
}

func TestOpenAIProvider_RecognizeText(t *testing.T) {
	t.Parallel()

	var seen map[string]any
	server := newTestServer(t, http.StatusOK,
		`{"text": "2024-01-15\n09:00-10:00 Call", "confidence": 0.85, "isHandwritten": true}`, &seen)
	defer server.Close()

	resp, err := newTestProvider(server.URL).RecognizeText(context.Background(), RecognizeTextRequest{
		Image: "data:image/png;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("RecognizeText() error = %v", err)
	}
	if !resp.IsHandwritten || resp.Confidence != 0.85 || !strings.Contains(resp.Text, "09:00-10:00") {
		t.Errorf("unexpected response %+v", resp)
	}
	if seen["model"] != DefaultOpenAIVisionModel {
		t.Errorf("model = %v, want %s", seen["model"], DefaultOpenAIVisionModel)
	}
}

func TestOpenAIProvider_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"message": "slow down", "type": "requests", "code": "rate_limit_exceeded"}}`,
			wantErr: ErrRateLimited,
		},
		{
			name:    "bad key",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"message": "invalid api key", "type": "invalid_request_error", "code": "invalid_api_key"}}`,
			wantErr: ErrAuthorizationRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := newTestServer(t, tt.status, tt.body, nil)
			defer server.Close()

			_, err := newTestProvider(server.URL).ParseFreeform(context.Background(), ParseFreeformRequest{Content: "1h support"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIProvider_ParseFreeformInputCap(t *testing.T) {
	t.Parallel()

	p := newTestProvider("http://127.0.0.1:1")
	_, err := p.ParseFreeform(context.Background(), ParseFreeformRequest{
		Content: strings.Repeat("x", MaxFreeformInputBytes+1),
	})
	if !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("error = %v, want ErrInputTooLarge", err)
	}
}

func TestDecodeJSONContent(t *testing.T) {
	t.Parallel()

	var v struct {
		Text string `json:"text"`
	}
	if err := decodeJSONContent("```json\n{\"text\": \"ok\"}\n```", &v); err != nil || v.Text != "ok" {
		t.Errorf("decodeJSONContent() = %v, text %q", err, v.Text)
	}
	if err := decodeJSONContent("no json here", &v); err == nil {
		t.Error("expected error without a JSON object")
	}
}

func TestBuildMapColumnsPromptLimitsSamples(t *testing.T) {
	t.Parallel()

	rows := make([][]string, 12)
	for i := range rows {
		rows[i] = []string{"row"}
	}
	prompt := buildMapColumnsPrompt(MapColumnsRequest{Headers: []string{"A"}, SampleRows: rows})
	if got := strings.Count(prompt, `"row"`); got != maxSampleRows {
		t.Errorf("sample rows in prompt = %d, want %d", got, maxSampleRows)
	}
}
