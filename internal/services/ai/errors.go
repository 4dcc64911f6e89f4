package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrRateLimited indicates the call was refused by a rate limit, local or remote
	ErrRateLimited = errors.New("rate limited")
	// ErrAuthorizationRequired indicates the caller is not entitled to the collaborator
	ErrAuthorizationRequired = errors.New("authorization required")
	// ErrInputTooLarge indicates the request exceeded the collaborator's input cap
	ErrInputTooLarge = errors.New("input too large")
	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = errors.New("no choices in response")
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// Unwrap maps the status to the collaborator's sentinel errors
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests && e.Code != "insufficient_quota":
		return ErrRateLimited
	case e.StatusCode == http.StatusUnauthorized,
		e.StatusCode == http.StatusPaymentRequired,
		e.StatusCode == http.StatusForbidden,
		e.Code == "insufficient_quota":
		return ErrAuthorizationRequired
	case e.StatusCode == http.StatusRequestEntityTooLarge:
		return ErrInputTooLarge
	}
	return nil
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsAuthorizationError checks if an error means the collaborator is not available to the caller
func IsAuthorizationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuthorizationRequired)
}

// ExtractAPIError extracts API error details from an error returned by the OpenAI client
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return &APIError{
			Message:    oaiErr.Message,
			Type:       oaiErr.Type,
			Code:       oaiErr.Code,
			StatusCode: oaiErr.StatusCode,
		}
	}

	// Some proxies flatten the error into a message carrying a JSON body
	errStr := err.Error()
	if !strings.Contains(errStr, "429") {
		return nil
	}
	apiErr := &APIError{
		StatusCode: http.StatusTooManyRequests,
		Message:    errStr,
		Type:       "rate_limit_error",
	}
	if jsonStart := strings.Index(errStr, "{"); jsonStart != -1 {
		jsonStr := errStr[jsonStart:]
		if jsonEnd := strings.LastIndex(jsonStr, "}"); jsonEnd != -1 {
			var errorData struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(jsonStr[:jsonEnd+1]), &errorData) == nil {
				apiErr.Message = errorData.Message
				apiErr.Type = errorData.Type
				apiErr.Code = errorData.Code
			}
		}
	}
	return apiErr
}
