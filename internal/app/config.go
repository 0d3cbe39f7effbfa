package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	PageURL string

	// Output. An empty OutputPath derives a path under ReportsDir from the page host.
	OutputPath    string
	OutputPDFPath string
	ReportsDir    string
	// JSONOutput prints the format index as JSON to stdout.
	JSONOutput bool
	// Format restricts the per-format listing to one format key.
	Format string

	// Fetch
	FetchTimeout    time.Duration
	UserAgent       string
	RedirectMaxHops int

	// OptimizedFormats overrides the default optimized policy (webp, svg).
	OptimizedFormats []string

	// LLM advice
	Advise     bool
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	// LLMTimeout bounds the advice call; 0 means defaultLLMTimeout.
	LLMTimeout time.Duration

	// Advice cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}

const (
	defaultUserAgent  = "imgaudit/1.0 (+https://github.com/hyperifyio/imgaudit)"
	defaultCacheDir   = ".imgaudit-cache"
	defaultOutputPath = "imgaudit.md"
	defaultLLMTimeout = 60 * time.Second
)

// ApplyDefaults fills settings that no flag, env var or config file provided.
// A configured ReportsDir leaves OutputPath empty so the path is derived per page.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.OutputPath == "" && cfg.ReportsDir == "" {
		cfg.OutputPath = defaultOutputPath
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir
	}
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = defaultLLMTimeout
	}
}
