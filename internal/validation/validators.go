package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/time-import/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("source_type", validateSourceType); err != nil {
		panic(fmt.Sprintf("failed to register source_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("content_encoding", validateContentEncoding); err != nil {
		panic(fmt.Sprintf("failed to register content_encoding validator: %v", err))
	}
	if err := Validate.RegisterValidation("batch_status", validateBatchStatus); err != nil {
		panic(fmt.Sprintf("failed to register batch_status validator: %v", err))
	}
}

// validateSourceType validates that a string is a valid SourceType enum value
func validateSourceType(fl validator.FieldLevel) bool {
	return ValidateSourceType(fl.Field().String()) == nil
}

// validateContentEncoding validates that a string is a valid ContentEncoding enum value
func validateContentEncoding(fl validator.FieldLevel) bool {
	switch models.ContentEncoding(fl.Field().String()) {
	case models.ContentEncodingText, models.ContentEncodingBase64:
		return true
	default:
		return false
	}
}

// validateBatchStatus validates that a string is a valid BatchStatus enum value
func validateBatchStatus(fl validator.FieldLevel) bool {
	switch models.BatchStatus(fl.Field().String()) {
	case models.BatchStatusDraft, models.BatchStatusReviewed, models.BatchStatusCommitted:
		return true
	default:
		return false
	}
}

// ValidateSourceType validates a SourceType string value
func ValidateSourceType(value string) error {
	for _, t := range models.AllSourceTypes {
		if string(t) == value {
			return nil
		}
	}
	return fmt.Errorf("invalid source type: %s", value)
}

// ValidateSource checks a source's structural fields before it is parsed
func ValidateSource(src models.Source) error {
	if err := Validate.Struct(src); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid source %s: field %s failed %s", SanitizeText(src.Filename), fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid source: %w", err)
	}
	if src.Type == models.SourceTypeSpreadsheet || src.Type == models.SourceTypeImage {
		if src.ContentEncoding != models.ContentEncodingBase64 {
			return fmt.Errorf("invalid source %s: %s content must be base64 encoded", SanitizeText(src.Filename), src.Type)
		}
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// FormatError renders the first failed field of a validator error for API responses
func FormatError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
	return err.Error()
}
