package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hyperifyio/imgaudit/internal/extract"
)

// MarkdownOptions controls optional parts of the rendered report.
type MarkdownOptions struct {
	// Format restricts the per-format listing to a single format key.
	Format string
	// Advice is appended under its own heading when non-empty.
	Advice      string
	GeneratedAt time.Time
	Version     string
}

var upper = cases.Upper(language.Und)

// FormatLabel returns the display label for a format key, e.g. "WEBP".
func FormatLabel(format string) string {
	return upper.String(format)
}

// PolicyLabel joins the optimized formats for display, e.g. "WEBP/SVG".
func PolicyLabel(formats []string, sep string) string {
	labels := make([]string, 0, len(formats))
	for _, f := range formats {
		labels = append(labels, FormatLabel(f))
	}
	return strings.Join(labels, sep)
}

// Verdict returns the one-line optimization verdict for s.
func (s Summary) Verdict() string {
	if s.Total == 0 {
		return NoImagesMessage
	}
	if s.AllOptimized() {
		return fmt.Sprintf("Excellent! All images are in %s format.", PolicyLabel(s.OptimizedFormats, " or "))
	}
	return fmt.Sprintf("%d image(s) could be optimized (e.g., convert to %s).", s.Unoptimized, PolicyLabel(s.OptimizedFormats, " or "))
}

// NoImagesMessage is rendered when a page was fetched but yielded no
// classifiable images.
const NoImagesMessage = "No `<img>` elements with a recognizable format were found on this page."

// Markdown renders the report for a successfully analyzed page.
func Markdown(s Summary, idx extract.Index, opts MarkdownOptions) string {
	var b strings.Builder
	b.WriteString("# Image format report\n\n")
	b.WriteString("Page: ")
	b.WriteString(s.PageURL)
	b.WriteString("\n")

	if s.Total == 0 {
		b.WriteString("\n> ")
		b.WriteString(NoImagesMessage)
		b.WriteString("\n")
		return appendFooter(b.String(), s, opts)
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString("- Total images: ")
	b.WriteString(strconv.Itoa(s.Total))
	b.WriteString("\n- Optimized formats (")
	b.WriteString(PolicyLabel(s.OptimizedFormats, "/"))
	b.WriteString("): ")
	b.WriteString(strconv.Itoa(s.Optimized))
	b.WriteString("\n\n> ")
	b.WriteString(s.Verdict())
	b.WriteString("\n\n")

	b.WriteString("| Format | Images | Optimized |\n|---|---:|---|\n")
	for _, fc := range s.Formats {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", fc.Format, fc.Count, yesNo(fc.Optimized))
	}

	formats := idx.SortedFormats()
	if strings.TrimSpace(opts.Format) != "" {
		formats = []string{normalizeFormat(opts.Format)}
	}
	for _, f := range formats {
		urls := Filter(idx, f)
		b.WriteString("\n## ")
		b.WriteString(FormatLabel(f))
		b.WriteString("\n\n")
		if len(urls) == 0 {
			fmt.Fprintf(&b, "No images with .%s format.\n", f)
			continue
		}
		fmt.Fprintf(&b, "%d image(s) with .%s format\n\n", len(urls), f)
		for _, u := range urls {
			b.WriteString("- [View image](")
			b.WriteString(linkDestination(u))
			b.WriteString(") `")
			b.WriteString(u)
			b.WriteString("`\n")
		}
	}

	if advice := strings.TrimSpace(opts.Advice); advice != "" {
		b.WriteString("\n## Advice\n\n")
		b.WriteString(advice)
		b.WriteString("\n")
	}
	return appendFooter(b.String(), s, opts)
}

// FailureMarkdown renders the report for a page that could not be fetched.
func FailureMarkdown(pageURL string, err error, opts MarkdownOptions) string {
	var b strings.Builder
	b.WriteString("# Image format report\n\n")
	b.WriteString("Page: ")
	b.WriteString(pageURL)
	b.WriteString("\n\n> Failed to fetch the page: ")
	if err != nil {
		b.WriteString(err.Error())
	} else {
		b.WriteString("unknown error")
	}
	b.WriteString("\n")
	return appendFooter(b.String(), Summary{PageURL: pageURL}, opts)
}

// appendFooter records the policy, totals and generation details.
func appendFooter(markdown string, s Summary, opts MarkdownOptions) string {
	var b strings.Builder
	b.WriteString(markdown)
	b.WriteString("\n---\n")
	b.WriteString("Generated by imgaudit")
	if v := strings.TrimSpace(opts.Version); v != "" {
		b.WriteString(" ")
		b.WriteString(v)
	}
	if !opts.GeneratedAt.IsZero() {
		b.WriteString(" at ")
		b.WriteString(opts.GeneratedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("; optimized_formats=")
	b.WriteString(strings.Join(s.OptimizedFormats, ","))
	b.WriteString("; images=")
	b.WriteString(strconv.Itoa(s.Total))
	b.WriteString("\n")
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

var destEscaper = strings.NewReplacer("(", "%28", ")", "%29", " ", "%20", "<", "%3C", ">", "%3E")

// linkDestination escapes characters that would end a Markdown link target.
func linkDestination(u string) string {
	return destEscaper.Replace(u)
}
