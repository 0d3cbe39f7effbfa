package report

import (
	"sort"
	"strings"

	"github.com/hyperifyio/imgaudit/internal/extract"
)

// DefaultOptimizedFormats is the set of format keys counted as already
// efficient when no other policy is configured.
var DefaultOptimizedFormats = []string{"webp", "svg"}

// Policy names the format keys that count as optimized.
type Policy struct {
	Formats []string
}

// DefaultPolicy returns a Policy over DefaultOptimizedFormats.
func DefaultPolicy() Policy {
	return Policy{Formats: append([]string(nil), DefaultOptimizedFormats...)}
}

func (p Policy) formats() []string {
	if len(p.Formats) == 0 {
		return DefaultOptimizedFormats
	}
	return p.Formats
}

// IsOptimized reports whether format belongs to the policy set.
func (p Policy) IsOptimized(format string) bool {
	format = normalizeFormat(format)
	for _, f := range p.formats() {
		if normalizeFormat(f) == format {
			return true
		}
	}
	return false
}

// ParseFormats splits a comma-separated list such as "webp, .SVG,avif" into
// normalized, de-duplicated format keys.
func ParseFormats(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		f := normalizeFormat(p)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func normalizeFormat(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
}

// FormatCount is the number of images found for one format.
type FormatCount struct {
	Format    string `json:"format"`
	Count     int    `json:"count"`
	Optimized bool   `json:"optimized"`
}

// Summary is the derived view over an index that a report renders.
type Summary struct {
	PageURL          string        `json:"page_url"`
	Total            int           `json:"total"`
	Optimized        int           `json:"optimized"`
	Unoptimized      int           `json:"unoptimized"`
	Formats          []FormatCount `json:"formats"`
	OptimizedFormats []string      `json:"optimized_formats"`
}

// Summarize computes totals for idx. Formats are listed in lexical order.
func Summarize(pageURL string, idx extract.Index, p Policy) Summary {
	s := Summary{PageURL: pageURL, OptimizedFormats: append([]string(nil), p.formats()...)}
	for _, f := range idx.SortedFormats() {
		fc := FormatCount{Format: f, Count: idx.Count(f), Optimized: p.IsOptimized(f)}
		s.Formats = append(s.Formats, fc)
		s.Total += fc.Count
		if fc.Optimized {
			s.Optimized += fc.Count
		}
	}
	s.Unoptimized = s.Total - s.Optimized
	return s
}

// AllOptimized reports whether at least one image was found and every image
// is in an optimized format.
func (s Summary) AllOptimized() bool {
	return s.Total > 0 && s.Total == s.Optimized
}

// Filter returns the URLs recorded for format. The format argument is
// matched case-insensitively and may carry a leading dot.
func Filter(idx extract.Index, format string) []string {
	return idx.URLs(normalizeFormat(format))
}

// SortFormatsByCount orders counts by descending count, then by format.
func SortFormatsByCount(in []FormatCount) []FormatCount {
	out := append([]FormatCount(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Format < out[j].Format
	})
	return out
}
