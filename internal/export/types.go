// Package export renders a plan's consolidated result as an HTML or PDF
// report and publishes it to object storage.
package export

import (
	"errors"
	"fmt"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// Request contains parameters for an export operation
type Request struct {
	PlanID string
	Format Format
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// Published is a report stored in object storage.
type Published struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	ExpiresIn int    `json:"expiresInSeconds"`
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
	// ErrStorageDisabled is returned by Publish when no object store is configured.
	ErrStorageDisabled = errors.New("report storage not configured")
)
