package app

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// deriveOutputPath returns the Markdown output path. An explicit OutputPath
// wins; otherwise the file is named after the page host plus a short hash of
// the full page URL under ReportsDir.
func deriveOutputPath(cfg Config) string {
	if p := strings.TrimSpace(cfg.OutputPath); p != "" {
		return p
	}
	root := strings.TrimSpace(cfg.ReportsDir)
	if root == "" {
		root = "reports"
	}
	page := strings.TrimSpace(cfg.PageURL)
	host := page
	if u, err := url.Parse(page); err == nil && u.Host != "" {
		host = u.Host
	}
	h := sha256.Sum256([]byte(page))
	return filepath.Join(root, slugify(host)+"-"+hex.EncodeToString(h[:])[:12]+".md")
}

func slugify(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "page"
	}
	return s
}
