package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// extPattern matches the trailing extension of a URL path.
var extPattern = regexp.MustCompile(`\.([A-Za-z0-9]+)$`)

// FromHTML finds every <img> in input, resolves its src against baseURL and
// groups the absolute URLs by format key. Images without a src, with an
// unresolvable src, or without an inferable extension are skipped. It never
// fails: unusable input yields an empty Index.
func FromHTML(input []byte, baseURL string) Index {
	idx := NewIndex()
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return idx
	}
	// Scripting off so <noscript> fallbacks are parsed as markup.
	root, err := html.ParseWithOptions(bytes.NewReader(input), html.ParseOptionEnableScripting(false))
	if err != nil || root == nil {
		return idx
	}
	goquery.NewDocumentFromNode(root).Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		abs, ok := Resolve(base, src)
		if !ok {
			return
		}
		if format, ok := FormatKey(abs); ok {
			idx.Add(format, abs)
		}
	})
	return idx
}

// Resolve converts src into an absolute URL using base. An src that is already
// absolute is returned unchanged unless it only parses once a stray '%' is
// escaped as "%25". It reports false for empty or unparseable references and
// for results that are still relative.
func Resolve(base *url.URL, src string) (string, bool) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", false
	}
	ref, err := url.Parse(src)
	if err != nil {
		src = escapeStrayPercent(src)
		if ref, err = url.Parse(src); err != nil {
			return "", false
		}
	}
	if ref.IsAbs() {
		return src, true
	}
	if base == nil {
		return "", false
	}
	u := base.ResolveReference(ref)
	if !u.IsAbs() {
		return "", false
	}
	return u.String(), true
}

// FormatKey derives the lowercase file extension from the path of rawURL,
// ignoring the query string, the fragment and ";params" on the last segment.
func FormatKey(rawURL string) (string, bool) {
	u, err := parseLenient(rawURL)
	if err != nil {
		return "", false
	}
	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	} else {
		path = stripParams(path)
	}
	m := extPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// stripParams drops ";params" from the last path segment, so that
// "/a.jpg;jsessionid=X" keeps its extension.
func stripParams(path string) string {
	last := strings.LastIndexByte(path, '/') + 1
	if i := strings.IndexByte(path[last:], ';'); i >= 0 {
		return path[:last+i]
	}
	return path
}

// parseLenient parses raw like url.Parse but tolerates a '%' that does not
// start a valid escape, as in "/100%.png".
func parseLenient(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err == nil {
		return u, nil
	}
	fixed := escapeStrayPercent(raw)
	if fixed == raw {
		return nil, err
	}
	return url.Parse(fixed)
}

// escapeStrayPercent rewrites every '%' not followed by two hex digits as "%25".
func escapeStrayPercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && !(i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
