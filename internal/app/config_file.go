package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/imgaudit/internal/report"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	URL       string `yaml:"url" json:"url"`
	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`
	Reports   string `yaml:"reportsDir" json:"reportsDir"`
	Format    string `yaml:"format" json:"format"`
	JSON      bool   `yaml:"json" json:"json"`

	Fetch struct {
		Timeout   Duration `yaml:"timeout" json:"timeout"`
		UserAgent string   `yaml:"userAgent" json:"userAgent"`
		Redirects int      `yaml:"redirects" json:"redirects"`
	} `yaml:"fetch" json:"fetch"`

	// OptimizedFormats accepts a list or a comma-separated string.
	OptimizedFormats formatList `yaml:"optimizedFormats" json:"optimizedFormats"`

	Advise bool `yaml:"advise" json:"advise"`
	LLM    struct {
		BaseURL string   `yaml:"base" json:"base"`
		Model   string   `yaml:"model" json:"model"`
		APIKey  string   `yaml:"key" json:"key"`
		Timeout Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"llm" json:"llm"`

	Cache struct {
		Dir         string   `yaml:"dir" json:"dir"`
		MaxAge      Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool     `yaml:"clear" json:"clear"`
		StrictPerms bool     `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Duration decodes "10s" style strings or bare seconds from YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.parse(value.Value)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n float64
		if jerr := json.Unmarshal(b, &n); jerr != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(time.Duration(n * float64(time.Second)))
		return nil
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%g", &secs); err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

type formatList []string

func (f *formatList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*f = report.ParseFormats(value.Value)
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*f = report.ParseFormats(strings.Join(list, ","))
	return nil
}

func (f *formatList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = report.ParseFormats(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*f = report.ParseFormats(strings.Join(list, ","))
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// currently unset in cfg, so explicit flags keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, v string) {
		if *dst == "" && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setString(&cfg.PageURL, fc.URL)
	setString(&cfg.OutputPath, fc.Output)
	setString(&cfg.OutputPDFPath, fc.OutputPDF)
	setString(&cfg.ReportsDir, fc.Reports)
	setString(&cfg.Format, fc.Format)
	setString(&cfg.UserAgent, fc.Fetch.UserAgent)
	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMModel, fc.LLM.Model)
	setString(&cfg.LLMAPIKey, fc.LLM.APIKey)
	setString(&cfg.CacheDir, fc.Cache.Dir)

	if cfg.FetchTimeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = time.Duration(fc.Fetch.Timeout)
	}
	if cfg.RedirectMaxHops == 0 && fc.Fetch.Redirects > 0 {
		cfg.RedirectMaxHops = fc.Fetch.Redirects
	}
	if len(cfg.OptimizedFormats) == 0 && len(fc.OptimizedFormats) > 0 {
		cfg.OptimizedFormats = append([]string(nil), fc.OptimizedFormats...)
	}
	if cfg.LLMTimeout == 0 && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = time.Duration(fc.LLM.Timeout)
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = time.Duration(fc.Cache.MaxAge)
	}
	if !cfg.JSONOutput && fc.JSON {
		cfg.JSONOutput = true
	}
	if !cfg.Advise && fc.Advise {
		cfg.Advise = true
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal validation for required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.PageURL) == "" {
		return errors.New("config: page url is required (-url or PAGE_URL)")
	}
	if _, err := url.Parse(strings.TrimSpace(cfg.PageURL)); err != nil {
		return fmt.Errorf("config: invalid page url: %w", err)
	}
	if cfg.FetchTimeout < 0 || cfg.RedirectMaxHops < 0 || cfg.CacheMaxAge < 0 || cfg.LLMTimeout < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.Advise && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required for advice (or set LLM_MODEL)")
	}
	return nil
}
