package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/imgaudit/internal/advise"
	"github.com/hyperifyio/imgaudit/internal/cache"
	"github.com/hyperifyio/imgaudit/internal/extract"
	"github.com/hyperifyio/imgaudit/internal/fetch"
	"github.com/hyperifyio/imgaudit/internal/llm"
	"github.com/hyperifyio/imgaudit/internal/report"
)

// ErrFetchFailed is returned by Run when the page could not be fetched. The
// underlying *fetch.Error stays reachable through errors.As.
var ErrFetchFailed = errors.New("fetch failed")

// pageFetcher is the minimal fetch method used by App, to simplify testing.
type pageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

type App struct {
	cfg       Config
	fetcher   pageFetcher
	extractor extract.Extractor
	advisor   *advise.Advisor
	stdout    io.Writer
	now       func() time.Time
}

func New(ctx context.Context, cfg Config) (*App, error) {
	httpClient := newHTTPClient()
	ua := cfg.UserAgent
	if strings.TrimSpace(ua) == "" {
		ua = defaultUserAgent
	}
	a := &App{
		cfg: cfg,
		fetcher: &fetch.Client{
			HTTPClient:      httpClient,
			UserAgent:       ua,
			Timeout:         cfg.FetchTimeout,
			RedirectMaxHops: cfg.RedirectMaxHops,
		},
		extractor: extract.ImageExtractor{},
		stdout:    os.Stdout,
		now:       time.Now,
	}
	if !cfg.Advise {
		return a, nil
	}

	var llmCache *cache.LLMCache
	if dir := strings.TrimSpace(cfg.CacheDir); dir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(dir); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(dir, cfg.CacheMaxAge, time.Now()); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged expired advice")
			}
		}
		llmCache = &cache.LLMCache{Dir: dir, StrictPerms: cfg.CacheStrictPerms}
	}
	ai := llm.NewOpenAI(cfg.LLMAPIKey, cfg.LLMBaseURL, httpClient)
	a.advisor = &advise.Advisor{Client: ai, Model: cfg.LLMModel, Cache: llmCache}

	// Preflight is best-effort: an unreachable model only loses the advice section.
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if models, err := ai.ListModels(ctx); err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
	} else {
		log.Debug().Int("count", len(models.Models)).Msg("LLM models available")
	}
	return a, nil
}

// Analyze fetches pageURL and classifies its images. A fetch failure is
// returned as *fetch.Error and the page is not parsed. A page without
// classifiable images yields an empty index and no error.
func (a *App) Analyze(ctx context.Context, pageURL string) (extract.Index, error) {
	body, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return extract.NewIndex(), err
	}
	idx := a.extractor.Extract([]byte(body), pageURL)
	log.Debug().Str("url", pageURL).Int("formats", idx.Len()).Int("images", idx.Total()).Msg("classified images")
	return idx, nil
}

// Run analyzes the configured page and writes the report artifacts.
func (a *App) Run(ctx context.Context) error {
	pageURL := strings.TrimSpace(a.cfg.PageURL)
	out := deriveOutputPath(a.cfg)
	opts := report.MarkdownOptions{Format: a.cfg.Format, GeneratedAt: a.now(), Version: BuildVersion}

	idx, err := a.Analyze(ctx, pageURL)
	if err != nil {
		log.Error().Err(err).Str("url", pageURL).Msg("could not reach page")
		md := report.FailureMarkdown(pageURL, err, opts)
		if werr := a.writeArtifacts(out, md, report.NewFailureManifest(pageURL, err, opts.GeneratedAt)); werr != nil {
			return werr
		}
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	s := report.Summarize(pageURL, idx, report.Policy{Formats: a.cfg.OptimizedFormats})
	if s.Total == 0 {
		log.Warn().Str("url", pageURL).Msg("no <img> elements with a recognizable format")
	} else {
		log.Info().Str("url", pageURL).Int("total", s.Total).Int("optimized", s.Optimized).Msg(s.Verdict())
	}

	if a.advisor != nil {
		opts.Advice = a.advise(ctx, s, idx)
	}

	md := report.Markdown(s, idx, opts)
	if err := a.writeArtifacts(out, md, report.NewManifest(s, idx, opts.GeneratedAt)); err != nil {
		return err
	}
	if a.cfg.JSONOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(idx); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	return nil
}

// advise asks the model for advice within the configured LLM timeout. Any
// failure leaves the report without an advice section.
func (a *App) advise(ctx context.Context, s report.Summary, idx extract.Index) string {
	timeout := a.cfg.LLMTimeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	advice, err := a.advisor.Advise(ctx, s, idx.Map())
	if err != nil {
		log.Warn().Err(err).Dur("timeout", timeout).Msg("advice failed; continuing without it")
		return ""
	}
	return advice
}

// writeArtifacts writes the Markdown report, its JSON manifest sidecar and the
// optional PDF. An output of "-" sends the Markdown to stdout only.
func (a *App) writeArtifacts(out string, md string, man report.Manifest) error {
	if out == "-" {
		_, err := io.WriteString(a.stdout, md)
		return err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if data, err := report.MarshalManifestJSON(man); err == nil {
		if err := os.WriteFile(report.ManifestSidecarPath(out), data, 0o644); err != nil {
			log.Warn().Err(err).Msg("write manifest failed")
		}
	}
	log.Info().Str("out", out).Msg("wrote report")

	if p := strings.TrimSpace(a.cfg.OutputPDFPath); p != "" {
		if err := report.WritePDF(md, p); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("pdf", p).Msg("wrote pdf")
	}
	return nil
}
