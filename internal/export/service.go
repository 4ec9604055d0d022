// Package export renders transcript versions for download: CSV of the
// timed words and a printable PDF of the text.
package export

import (
	"errors"

	"scriptum/api/internal/store"
)

// ErrPDFDependencyMissing is returned when no chromium binary is
// available for PDF rendering.
var ErrPDFDependencyMissing = errors.New("pdf dependency missing")

// Result is one rendered export.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// Service renders exports from version data.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Export renders version in the requested format ("csv" or "pdf").
func (s *Service) Export(v *store.Version, format string) (*Result, error) {
	switch format {
	case "csv":
		return exportCSV(v)
	case "pdf":
		return exportPDF(transcriptHTML(v), v.Doc)
	default:
		return nil, errors.New("unsupported export format: " + format)
	}
}
