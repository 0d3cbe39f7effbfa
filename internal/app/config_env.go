package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/imgaudit/internal/report"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// a config file while flags, applied last, stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, envKey string) {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.PageURL, "PAGE_URL")
	setString(&cfg.OutputPath, "OUTPUT")
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.CacheDir, "CACHE_DIR")

	if d := envDuration("FETCH_TIMEOUT"); d > 0 {
		cfg.FetchTimeout = d
	}
	if d := envDuration("CACHE_MAX_AGE"); d > 0 {
		cfg.CacheMaxAge = d
	}
	if d := envDuration("LLM_TIMEOUT"); d > 0 {
		cfg.LLMTimeout = d
	}
	if v := os.Getenv("OPTIMIZED_FORMATS"); strings.TrimSpace(v) != "" {
		cfg.OptimizedFormats = report.ParseFormats(v)
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if v, ok := envBool(envKey); ok {
			*dst = v
		}
	}
	setBool(&cfg.Advise, "ADVISE")
	setBool(&cfg.JSONOutput, "JSON_OUTPUT")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}

// envDuration accepts Go durations ("15s") or a bare number of seconds.
func envDuration(key string) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 0
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
