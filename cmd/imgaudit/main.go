package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/imgaudit/internal/app"
	"github.com/hyperifyio/imgaudit/internal/report"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitFetchFailed = 2
)

// options holds raw flag values plus the set of flags given explicitly, so
// that only those override env and config file values.
type options struct {
	flags       app.Config
	optimized   string
	configPath  string
	envPaths    string
	showVersion bool
	set         map[string]bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		os.Exit(exitError)
	}
	if opts.showVersion {
		fmt.Println("imgaudit", app.VersionString())
		return
	}

	cfg, err := resolveConfig(opts)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
	}
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps run errors to the process exit status. A page without images
// is a success; only fetch failures get a dedicated code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrFetchFailed):
		return exitFetchFailed
	default:
		return exitError
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("imgaudit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.flags.PageURL, "url", "", "Page URL to analyze (or PAGE_URL); may also be given as the first argument")
	fs.StringVar(&o.flags.OutputPath, "output", "imgaudit.md", "Path to write the Markdown report; '-' writes to stdout")
	fs.StringVar(&o.flags.ReportsDir, "reports", "", "Directory for per-page reports when -output is not given")
	fs.StringVar(&o.flags.OutputPDFPath, "pdf", "", "Optional path to also write the report as PDF")
	fs.BoolVar(&o.flags.JSONOutput, "json", false, "Print the format index as JSON to stdout")
	fs.StringVar(&o.flags.Format, "format", "", "Only list images of this format, e.g. 'jpg'")
	fs.DurationVar(&o.flags.FetchTimeout, "timeout", 0, "Page fetch timeout (default 10s)")
	fs.StringVar(&o.flags.UserAgent, "ua", "", "Custom User-Agent for the page request")
	fs.IntVar(&o.flags.RedirectMaxHops, "redirects", 0, "Maximum redirects to follow (default 10)")
	fs.StringVar(&o.optimized, "optimized", "", "Comma-separated formats counted as optimized (default webp,svg)")
	fs.StringVar(&o.configPath, "config", "", "Optional YAML or JSON config file")
	fs.StringVar(&o.envPaths, "env", ".env", "Comma-separated dotenv files to load before reading env")
	fs.BoolVar(&o.flags.Advise, "advise", false, "Ask an OpenAI-compatible model for conversion advice")
	fs.StringVar(&o.flags.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&o.flags.LLMModel, "llm.model", "", "Model name")
	fs.StringVar(&o.flags.LLMAPIKey, "llm.key", "", "API key for OpenAI-compatible server")
	fs.DurationVar(&o.flags.LLMTimeout, "llm.timeout", 0, "Timeout for the advice call (default 60s)")
	fs.StringVar(&o.flags.CacheDir, "cache.dir", "", "Advice cache directory (default .imgaudit-cache)")
	fs.BoolVar(&o.flags.CacheClear, "cache.clear", false, "Clear advice cache before run")
	fs.DurationVar(&o.flags.CacheMaxAge, "cache.maxAge", 0, "Max age for cached advice before purge (e.g. 24h); 0 disables")
	fs.BoolVar(&o.flags.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&o.flags.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	if !o.set["url"] && fs.NArg() > 0 {
		o.flags.PageURL = fs.Arg(0)
		o.set["url"] = true
	}
	return o, nil
}

// resolveConfig layers dotenv files, the config file, env vars and explicit
// flags, in increasing precedence, then fills defaults and validates.
func resolveConfig(o options) (app.Config, error) {
	var cfg app.Config
	if err := app.LoadEnvFiles(splitList(o.envPaths)...); err != nil {
		return cfg, err
	}
	if p := strings.TrimSpace(o.configPath); p != "" {
		fc, err := app.LoadConfigFile(p)
		if err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	applyFlags(&cfg, o)
	app.ApplyDefaults(&cfg)
	return cfg, app.ValidateConfig(cfg)
}

func applyFlags(cfg *app.Config, o options) {
	f := o.flags
	for name := range o.set {
		switch name {
		case "url":
			cfg.PageURL = f.PageURL
		case "output":
			cfg.OutputPath = f.OutputPath
		case "reports":
			cfg.ReportsDir = f.ReportsDir
		case "pdf":
			cfg.OutputPDFPath = f.OutputPDFPath
		case "json":
			cfg.JSONOutput = f.JSONOutput
		case "format":
			cfg.Format = f.Format
		case "timeout":
			cfg.FetchTimeout = f.FetchTimeout
		case "ua":
			cfg.UserAgent = f.UserAgent
		case "redirects":
			cfg.RedirectMaxHops = f.RedirectMaxHops
		case "optimized":
			cfg.OptimizedFormats = report.ParseFormats(o.optimized)
		case "advise":
			cfg.Advise = f.Advise
		case "llm.base":
			cfg.LLMBaseURL = f.LLMBaseURL
		case "llm.model":
			cfg.LLMModel = f.LLMModel
		case "llm.key":
			cfg.LLMAPIKey = f.LLMAPIKey
		case "llm.timeout":
			cfg.LLMTimeout = f.LLMTimeout
		case "cache.dir":
			cfg.CacheDir = f.CacheDir
		case "cache.clear":
			cfg.CacheClear = f.CacheClear
		case "cache.maxAge":
			cfg.CacheMaxAge = f.CacheMaxAge
		case "cache.strictPerms":
			cfg.CacheStrictPerms = f.CacheStrictPerms
		case "v":
			cfg.Verbose = f.Verbose
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}
