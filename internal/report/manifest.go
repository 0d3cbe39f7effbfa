package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/imgaudit/internal/extract"
)

// Manifest is the machine-readable sidecar written next to a report.
type Manifest struct {
	RunID            string        `json:"run_id"`
	PageURL          string        `json:"page_url"`
	GeneratedAt      time.Time     `json:"generated_at"`
	Total            int           `json:"total"`
	Optimized        int           `json:"optimized"`
	OptimizedFormats []string      `json:"optimized_formats"`
	Formats          []FormatCount `json:"formats"`
	Index            extract.Index `json:"index"`
	// Error is set when the page could not be fetched.
	Error string `json:"error,omitempty"`
}

// NewManifest builds a manifest for an analyzed page.
func NewManifest(s Summary, idx extract.Index, now time.Time) Manifest {
	formats := s.Formats
	if formats == nil {
		formats = []FormatCount{}
	}
	return Manifest{
		RunID:            uuid.NewString(),
		PageURL:          s.PageURL,
		GeneratedAt:      now.UTC(),
		Total:            s.Total,
		Optimized:        s.Optimized,
		OptimizedFormats: s.OptimizedFormats,
		Formats:          formats,
		Index:            idx,
	}
}

// NewFailureManifest builds a manifest for a page that could not be fetched.
func NewFailureManifest(pageURL string, err error, now time.Time) Manifest {
	m := NewManifest(Summary{PageURL: pageURL}, extract.NewIndex(), now)
	if err != nil {
		m.Error = err.Error()
	}
	return m
}

// MarshalManifestJSON encodes m with stable indentation.
func MarshalManifestJSON(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ManifestSidecarPath returns a sidecar JSON path next to the output Markdown.
func ManifestSidecarPath(outputPath string) string {
	return outputPath + ".manifest.json"
}
