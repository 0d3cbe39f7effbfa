package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/imgaudit/internal/extract"
)

func sampleIndex() extract.Index {
	return extract.FromHTML([]byte(`<img src="a.jpg"><img src="b.webp"><img src="c.jpg">`), "https://x.test/")
}

func TestSummarize_DefaultPolicy(t *testing.T) {
	s := Summarize("https://x.test/", sampleIndex(), DefaultPolicy())
	if s.Total != 3 || s.Optimized != 1 || s.Unoptimized != 2 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	want := []FormatCount{{Format: "jpg", Count: 2}, {Format: "webp", Count: 1, Optimized: true}}
	if !reflect.DeepEqual(s.Formats, want) {
		t.Fatalf("got %+v, want %+v", s.Formats, want)
	}
	if s.AllOptimized() {
		t.Fatalf("did not expect all optimized")
	}
	if !strings.Contains(s.Verdict(), "2 image(s) could be optimized") {
		t.Fatalf("unexpected verdict %q", s.Verdict())
	}
}

func TestSummarize_OptimizedCountsExactlyPolicyKeys(t *testing.T) {
	idx := extract.NewIndex()
	idx.Add("svg", "https://x.test/1.svg")
	idx.Add("webp", "https://x.test/2.webp")
	idx.Add("avif", "https://x.test/3.avif")

	s := Summarize("https://x.test/", idx, Policy{})
	if s.Optimized != 2 {
		t.Fatalf("expected only webp+svg to count, got %d", s.Optimized)
	}
	s = Summarize("https://x.test/", idx, Policy{Formats: ParseFormats("webp,svg,AVIF")})
	if !s.AllOptimized() {
		t.Fatalf("expected all optimized with avif in policy: %+v", s)
	}
	if !strings.HasPrefix(s.Verdict(), "Excellent!") {
		t.Fatalf("unexpected verdict %q", s.Verdict())
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("https://x.test/", extract.NewIndex(), DefaultPolicy())
	if s.Total != 0 || s.AllOptimized() {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Verdict() != NoImagesMessage {
		t.Fatalf("unexpected verdict %q", s.Verdict())
	}
}

func TestParseFormats(t *testing.T) {
	got := ParseFormats(" webp, .SVG ,,svg, avif ")
	if !reflect.DeepEqual(got, []string{"webp", "svg", "avif"}) {
		t.Fatalf("got %v", got)
	}
}

func TestFilter(t *testing.T) {
	idx := sampleIndex()
	if got := Filter(idx, ".JPG"); len(got) != 2 {
		t.Fatalf("expected 2 jpg urls, got %v", got)
	}
	if got := Filter(idx, "png"); got != nil {
		t.Fatalf("expected nil for missing format, got %v", got)
	}
}

func TestSortFormatsByCount(t *testing.T) {
	in := []FormatCount{{Format: "b", Count: 1}, {Format: "a", Count: 1}, {Format: "c", Count: 5}}
	got := SortFormatsByCount(in)
	if got[0].Format != "c" || got[1].Format != "a" || got[2].Format != "b" {
		t.Fatalf("unexpected order %+v", got)
	}
	if in[0].Format != "b" {
		t.Fatalf("input must not be reordered")
	}
}

func TestMarkdown_Report(t *testing.T) {
	idx := sampleIndex()
	s := Summarize("https://x.test/", idx, DefaultPolicy())
	md := Markdown(s, idx, MarkdownOptions{Advice: "Convert JPEGs.", GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Version: "1.2.3"})

	for _, want := range []string{
		"# Image format report",
		"Page: https://x.test/",
		"- Total images: 3",
		"- Optimized formats (WEBP/SVG): 1",
		"| jpg | 2 | no |",
		"| webp | 1 | yes |",
		"## JPG",
		"2 image(s) with .jpg format",
		"- [View image](https://x.test/a.jpg) `https://x.test/a.jpg`",
		"## Advice\n\nConvert JPEGs.",
		"Generated by imgaudit 1.2.3 at 2026-01-02T03:04:05Z",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in report:\n%s", want, md)
		}
	}
	if strings.Index(md, "https://x.test/a.jpg") > strings.Index(md, "https://x.test/c.jpg") {
		t.Fatalf("expected document order within a format")
	}
}

func TestMarkdown_LinkDestinationWithParens(t *testing.T) {
	idx := extract.NewIndex()
	idx.Add("jpg", "https://x.test/a(1).jpg")
	md := Markdown(Summarize("https://x.test/", idx, DefaultPolicy()), idx, MarkdownOptions{})

	if !strings.Contains(md, "- [View image](https://x.test/a%281%29.jpg) `https://x.test/a(1).jpg`") {
		t.Fatalf("expected escaped link target:\n%s", md)
	}
	var targets []string
	for _, m := range linkRe.FindAllStringSubmatch(md, -1) {
		targets = append(targets, m[2])
	}
	if !reflect.DeepEqual(targets, []string{"https://x.test/a%281%29.jpg"}) {
		t.Fatalf("PDF link targets = %v", targets)
	}
}

func TestMarkdown_SelectedFormat(t *testing.T) {
	idx := sampleIndex()
	s := Summarize("https://x.test/", idx, DefaultPolicy())

	md := Markdown(s, idx, MarkdownOptions{Format: "WEBP"})
	if strings.Contains(md, "## JPG") || !strings.Contains(md, "## WEBP") {
		t.Fatalf("expected only webp section:\n%s", md)
	}
	md = Markdown(s, idx, MarkdownOptions{Format: "png"})
	if !strings.Contains(md, "No images with .png format.") {
		t.Fatalf("expected missing-format note:\n%s", md)
	}
}

func TestMarkdown_NoImagesDiffersFromFailure(t *testing.T) {
	empty := Markdown(Summarize("https://x.test/", extract.NewIndex(), DefaultPolicy()), extract.NewIndex(), MarkdownOptions{})
	failed := FailureMarkdown("https://x.test/", errors.New("dial tcp: no such host"), MarkdownOptions{})

	if !strings.Contains(empty, NoImagesMessage) || strings.Contains(empty, "Failed to fetch") {
		t.Fatalf("unexpected empty report:\n%s", empty)
	}
	if !strings.Contains(failed, "Failed to fetch the page: dial tcp: no such host") || strings.Contains(failed, NoImagesMessage) {
		t.Fatalf("unexpected failure report:\n%s", failed)
	}
}

func TestManifest(t *testing.T) {
	idx := sampleIndex()
	s := Summarize("https://x.test/", idx, DefaultPolicy())
	m := NewManifest(s, idx, time.Unix(0, 0))
	if m.RunID == "" {
		t.Fatalf("expected run id")
	}
	b, err := MarshalManifestJSON(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back struct {
		Total int                 `json:"total"`
		Index map[string][]string `json:"index"`
		Error string              `json:"error"`
	}
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Total != 3 || len(back.Index["jpg"]) != 2 || back.Error != "" {
		t.Fatalf("unexpected manifest %s", b)
	}

	fm := NewFailureManifest("https://x.test/", errors.New("boom"), time.Unix(0, 0))
	b, _ = MarshalManifestJSON(fm)
	if !bytes.Contains(b, []byte(`"error": "boom"`)) || !bytes.Contains(b, []byte(`"index": {}`)) {
		t.Fatalf("unexpected failure manifest %s", b)
	}
	if got := ManifestSidecarPath("out/report.md"); got != "out/report.md.manifest.json" {
		t.Fatalf("unexpected sidecar path %q", got)
	}
}

func TestWritePDF(t *testing.T) {
	idx := sampleIndex()
	md := Markdown(Summarize("https://x.test/", idx, DefaultPolicy()), idx, MarkdownOptions{})
	out := filepath.Join(t.TempDir(), "report.pdf")
	if err := WritePDF(md, out); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("expected PDF header")
	}
}
