// Package config assembles run settings from built-in defaults, an optional
// YAML file, a .env file, QUIZ_* environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"psp.com/arbitro-quiz/internal/deduce"
	"psp.com/arbitro-quiz/internal/match"
	"psp.com/arbitro-quiz/internal/scraper"
)

// Config holds every tunable of the tools.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	Kind           string        `yaml:"tipo"`
	Count          int           `yaml:"preguntas"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	IterationDelay time.Duration `yaml:"iteration_delay"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	KBPath         string        `yaml:"kb"`

	MatchThreshold float64 `yaml:"match_threshold"`
	TieBreak       string  `yaml:"tie_break"`
	TrustDecrease  bool    `yaml:"trust_decrease"`

	Target         int `yaml:"target"`
	MaxIterations  int `yaml:"max_iterations"`
	StopAfterNoNew int `yaml:"stop_after_no_new"`

	ServeAddr   string   `yaml:"serve_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	// TrustProxy keys rate limiting on X-Forwarded-For instead of the peer address.
	TrustProxy bool `yaml:"trust_proxy"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		BaseURL:        scraper.DefaultBaseURL,
		Kind:           "testArb",
		Count:          25,
		RequestDelay:   300 * time.Millisecond,
		IterationDelay: time.Second,
		Timeout:        20 * time.Second,
		KBPath:         "all_answers.json",
		MatchThreshold: match.DefaultThreshold,
		TieBreak:       match.TieEarliest.String(),
		StopAfterNoNew: 5,
		ServeAddr:      ":8080",
		CORSOrigins:    []string{"*"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), a .env file in the working directory and the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = ParseYAML(data, cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseYAML overlays a single YAML document on base. Unknown keys are errors.
func ParseYAML(data []byte, base Config) (Config, error) {
	cfg := base
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from QUIZ_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(k string, dst *string) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(k string, dst *int) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", k, v, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(k string, dst *bool) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", k, v, err))
				return
			}
			*dst = b
		}
	}
	dur := func(k string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", k, v, err))
				return
			}
			*dst = d
		}
	}

	str("QUIZ_BASE_URL", &c.BaseURL)
	str("QUIZ_KIND", &c.Kind)
	num("QUIZ_COUNT", &c.Count)
	dur("QUIZ_REQUEST_DELAY", &c.RequestDelay)
	dur("QUIZ_ITERATION_DELAY", &c.IterationDelay)
	dur("QUIZ_TIMEOUT", &c.Timeout)
	str("QUIZ_USER_AGENT", &c.UserAgent)
	str("QUIZ_KB", &c.KBPath)
	if v := strings.TrimSpace(getenv("QUIZ_MATCH_THRESHOLD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("QUIZ_MATCH_THRESHOLD=%q: %w", v, err))
		} else {
			c.MatchThreshold = f
		}
	}
	str("QUIZ_TIE_BREAK", &c.TieBreak)
	boolean("QUIZ_TRUST_DECREASE", &c.TrustDecrease)
	num("QUIZ_TARGET", &c.Target)
	num("QUIZ_MAX_ITERATIONS", &c.MaxIterations)
	num("QUIZ_STOP_AFTER_NO_NEW", &c.StopAfterNoNew)
	str("QUIZ_SERVE_ADDR", &c.ServeAddr)
	if v := strings.TrimSpace(getenv("QUIZ_CORS_ORIGINS")); v != "" {
		c.CORSOrigins = SplitList(v)
	}
	boolean("QUIZ_TRUST_PROXY", &c.TrustProxy)
	return errors.Join(errs...)
}

// ParseDuration accepts Go durations ("300ms") and plain seconds ("0.3").
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every setting that cannot work.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base URL %q must be an absolute http(s) URL", c.BaseURL))
	}
	if strings.TrimSpace(c.Kind) == "" {
		errs = append(errs, errors.New("quiz kind is required"))
	}
	if c.Count <= 0 {
		errs = append(errs, fmt.Errorf("question count must be positive, got %d", c.Count))
	}
	if c.RequestDelay < 0 || c.IterationDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("match threshold must be in (0,1], got %g", c.MatchThreshold))
	}
	if _, err := match.ParseTieBreak(c.TieBreak); err != nil {
		errs = append(errs, err)
	}
	if c.Target < 0 || c.MaxIterations < 0 || c.StopAfterNoNew < 0 {
		errs = append(errs, errors.New("collector limits cannot be negative"))
	}
	return errors.Join(errs...)
}

// MatchPolicy is the option matcher policy the settings describe.
func (c Config) MatchPolicy() match.Policy {
	tb, err := match.ParseTieBreak(c.TieBreak)
	if err != nil {
		tb = match.TieEarliest
	}
	return match.Policy{Threshold: c.MatchThreshold, TieBreak: tb}
}

// DeducePolicy is the deduction policy the settings describe.
func (c Config) DeducePolicy() deduce.Policy {
	return deduce.Policy{Match: c.MatchPolicy(), TrustDecrease: c.TrustDecrease}
}
