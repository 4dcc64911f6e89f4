package models

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// SourceType identifies which extractor handles a source
type SourceType string

const (
	SourceTypeDelimited   SourceType = "delimited_text"
	SourceTypeSpreadsheet SourceType = "spreadsheet"
	SourceTypeExport      SourceType = "structured_export"
	SourceTypeFreeText    SourceType = "free_text"
	SourceTypeImage       SourceType = "image"
)

// AllSourceTypes lists every source type. Dispatch tables are checked against it.
var AllSourceTypes = []SourceType{
	SourceTypeDelimited,
	SourceTypeSpreadsheet,
	SourceTypeExport,
	SourceTypeFreeText,
	SourceTypeImage,
}

// ContentEncoding describes how Source.Content is stored
type ContentEncoding string

const (
	ContentEncodingText   ContentEncoding = "text"
	ContentEncodingBase64 ContentEncoding = "base64"
)

// ExportHeaders is the header row written by the application's own export.
var ExportHeaders = []string{"date", "start_time", "end_time", "duration_minutes", "category", "note"}

// Source is one ingested item (file or pasted text) before parsing
type Source struct {
	ID              uuid.UUID       `json:"id" yaml:"id" validate:"required"`
	Type            SourceType      `json:"type" yaml:"type" validate:"required,source_type"`
	Filename        string          `json:"filename" yaml:"filename" validate:"required,max=512"`
	Content         string          `json:"content" yaml:"content"`
	ContentEncoding ContentEncoding `json:"content_encoding" yaml:"content_encoding" validate:"required,content_encoding"`
	SizeBytes       int64           `json:"size_bytes" yaml:"size_bytes" validate:"gte=0"`
	AddedAt         time.Time       `json:"added_at" yaml:"added_at"`
	MimeType        *string         `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Hash            *string         `json:"hash,omitempty" yaml:"hash,omitempty"`
	SheetName       *string         `json:"sheet_name,omitempty" yaml:"sheet_name,omitempty"`
}

// NewSource builds an immutable source from raw bytes. The type is derived from the
// filename and, for .csv files, the shape of the header line.
func NewSource(filename string, data []byte, addedAt time.Time) Source {
	sourceType := DetectSourceType(filename, data)

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	mime := mimetype.Detect(data).String()

	src := Source{
		ID:        uuid.New(),
		Type:      sourceType,
		Filename:  filename,
		SizeBytes: int64(len(data)),
		AddedAt:   addedAt,
		MimeType:  &mime,
		Hash:      &hash,
	}

	switch sourceType {
	case SourceTypeSpreadsheet, SourceTypeImage:
		src.Content = base64.StdEncoding.EncodeToString(data)
		src.ContentEncoding = ContentEncodingBase64
	default:
		src.Content = string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
		src.ContentEncoding = ContentEncodingText
	}

	return src
}

// NewTextSource wraps pasted text as a free-text source
func NewTextSource(label, text string, addedAt time.Time) Source {
	if label == "" {
		label = "pasted-text.txt"
	}
	src := NewSource(label, []byte(text), addedAt)
	src.Type = SourceTypeFreeText
	return src
}

// Bytes returns the decoded source content
func (s Source) Bytes() ([]byte, error) {
	switch s.ContentEncoding {
	case ContentEncodingBase64:
		data, err := base64.StdEncoding.DecodeString(s.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", s.Filename, err)
		}
		return data, nil
	case ContentEncodingText, "":
		return []byte(s.Content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", s.ContentEncoding)
	}
}

// Text returns the source content as text
func (s Source) Text() (string, error) {
	data, err := s.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DataURI returns the content as a data URI, as expected by the OCR collaborator
func (s Source) DataURI() (string, error) {
	data, err := s.Bytes()
	if err != nil {
		return "", err
	}
	mime := "application/octet-stream"
	if s.MimeType != nil && *s.MimeType != "" {
		mime = *s.MimeType
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DetectSourceType maps a filename (and the first line of delimited content) to a source type.
// It never inspects binary content.
func DetectSourceType(filename string, data []byte) SourceType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		if IsExportHeader(firstLine(data)) {
			return SourceTypeExport
		}
		return SourceTypeDelimited
	case ".xlsx", ".xlsm", ".xltx", ".xltm", ".xls":
		return SourceTypeSpreadsheet
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".heic":
		return SourceTypeImage
	default:
		return SourceTypeFreeText
	}
}

// IsExportHeader reports whether a header line carries exactly the export header set
func IsExportHeader(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	sep := ","
	if strings.Count(line, ";") > strings.Count(line, ",") {
		sep = ";"
	}
	fields := strings.Split(line, sep)
	headers := make([]string, 0, len(fields))
	for _, f := range fields {
		headers = append(headers, strings.Trim(strings.TrimSpace(f), `"`))
	}
	return MatchesExportHeaders(headers)
}

// MatchesExportHeaders reports whether headers are the export header set, in any order and case
func MatchesExportHeaders(headers []string) bool {
	if len(headers) != len(ExportHeaders) {
		return false
	}
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		seen[strings.ToLower(strings.TrimSpace(h))] = true
	}
	for _, want := range ExportHeaders {
		if !seen[want] {
			return false
		}
	}
	return true
}

func firstLine(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
