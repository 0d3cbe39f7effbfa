package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	apppkg "github.com/hyperifyio/imgaudit/internal/app"
	"github.com/hyperifyio/imgaudit/internal/fetch"
)

// Smoke test: run fetches a page and writes the report.
func TestRun_WritesOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<img src="/a.png"><img src="/b.webp">`))
	}))
	defer srv.Close()
	out := filepath.Join(t.TempDir(), "out.md")

	cfg := apppkg.Config{PageURL: srv.URL, OutputPath: out}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil || !strings.Contains(string(b), "- Total images: 2") {
		t.Fatalf("expected report, err=%v\n%s", err, b)
	}
}

// Fetch failures surface as ErrFetchFailed so the CLI exits with 2.
func TestRun_FetchFailure_ExitCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := apppkg.Config{PageURL: srv.URL, OutputPath: filepath.Join(t.TempDir(), "out.md")}
	err := run(context.Background(), cfg)
	if !errors.Is(err, apppkg.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if got := exitCode(err); got != exitFetchFailed {
		t.Fatalf("exitCode = %d, want %d", got, exitFetchFailed)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != exitOK {
		t.Fatalf("nil error must exit 0")
	}
	wrapped := fmt.Errorf("%w: %w", apppkg.ErrFetchFailed, &fetch.Error{URL: "http://x.invalid", Err: errors.New("no such host")})
	if exitCode(wrapped) != exitFetchFailed {
		t.Fatalf("fetch failure must exit 2")
	}
	if exitCode(errors.New("write output: permission denied")) != exitError {
		t.Fatalf("other errors must exit 1")
	}
}

func TestParseFlags_PositionalURLAndSetTracking(t *testing.T) {
	o, err := parseFlags([]string{"-timeout", "3s", "-llm.timeout", "20s", "-optimized", "webp,avif", "https://example.com/"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.flags.PageURL != "https://example.com/" || !o.set["url"] {
		t.Fatalf("positional url not taken: %+v", o)
	}
	if !o.set["timeout"] || o.flags.FetchTimeout != 3*time.Second {
		t.Fatalf("timeout not recorded: %+v", o)
	}
	if !o.set["llm.timeout"] || o.flags.LLMTimeout != 20*time.Second {
		t.Fatalf("llm.timeout not recorded: %+v", o)
	}
	if o.set["output"] {
		t.Fatalf("output was not given explicitly")
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	if _, err := parseFlags([]string{"-nope"}, io.Discard); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}

func TestResolveConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "imgaudit.yaml")
	yaml := "url: https://file.example/\noptimizedFormats: [png]\nfetch:\n  userAgent: file-agent\n  timeout: 30s\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("USER_AGENT=dotenv-agent\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("USER_AGENT", "")
	os.Unsetenv("USER_AGENT")
	t.Setenv("FETCH_TIMEOUT", "5s")

	o, err := parseFlags([]string{"-config", cfgPath, "-env", envPath, "-url", "https://flag.example/"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveConfig(o)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.PageURL != "https://flag.example/" {
		t.Fatalf("flag should win over file: %q", cfg.PageURL)
	}
	if cfg.UserAgent != "dotenv-agent" {
		t.Fatalf("dotenv should win over file: %q", cfg.UserAgent)
	}
	if cfg.FetchTimeout != 5*time.Second {
		t.Fatalf("env should win over file: %v", cfg.FetchTimeout)
	}
	if !reflect.DeepEqual(cfg.OptimizedFormats, []string{"png"}) {
		t.Fatalf("file value should remain: %v", cfg.OptimizedFormats)
	}
	if cfg.OutputPath != "imgaudit.md" {
		t.Fatalf("default output expected, got %q", cfg.OutputPath)
	}
}

func TestResolveConfig_MissingURL(t *testing.T) {
	t.Setenv("PAGE_URL", "")
	o, err := parseFlags([]string{"-env", ""}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(o); err == nil {
		t.Fatalf("expected validation error without a page url")
	}
}
