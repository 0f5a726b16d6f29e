package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"psp.com/arbitro-quiz/internal/match"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 25, cfg.Count)
	require.Equal(t, "testArb", cfg.Kind)
	require.Equal(t, 300*time.Millisecond, cfg.RequestDelay)
	require.Equal(t, match.DefaultPolicy, cfg.MatchPolicy())
	require.False(t, cfg.DeducePolicy().TrustDecrease)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
tipo: testOf
preguntas: 10
request_delay: 500ms
tie_break: reject
cors_origins: [https://example.org]
`)
	cfg, err := ParseYAML(data, Default())
	require.NoError(t, err)
	require.Equal(t, "testOf", cfg.Kind)
	require.Equal(t, 10, cfg.Count)
	require.Equal(t, 500*time.Millisecond, cfg.RequestDelay)
	require.Equal(t, time.Second, cfg.IterationDelay, "unset keys keep their default")
	require.Equal(t, match.TieReject, cfg.MatchPolicy().TieBreak)
	require.Equal(t, []string{"https://example.org"}, cfg.CORSOrigins)

	_, err = ParseYAML([]byte("unknown_key: 1\n"), Default())
	require.Error(t, err)

	_, err = ParseYAML([]byte("tipo: a\n---\ntipo: b\n"), Default())
	require.Error(t, err)

	cfg, err = ParseYAML(nil, Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"QUIZ_COUNT":           "5",
		"QUIZ_REQUEST_DELAY":   "0.5",
		"QUIZ_ITERATION_DELAY": "2s",
		"QUIZ_TRUST_DECREASE":  "true",
		"QUIZ_MATCH_THRESHOLD": "0.9",
		"QUIZ_CORS_ORIGINS":    "http://a, ,http://b",
		"QUIZ_TRUST_PROXY":     "1",
	}))
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Count)
	require.Equal(t, 500*time.Millisecond, cfg.RequestDelay)
	require.Equal(t, 2*time.Second, cfg.IterationDelay)
	require.True(t, cfg.TrustDecrease)
	require.Equal(t, 0.9, cfg.MatchThreshold)
	require.Equal(t, []string{"http://a", "http://b"}, cfg.CORSOrigins)
	require.True(t, cfg.TrustProxy)

	err = cfg.ApplyEnv(env(map[string]string{"QUIZ_COUNT": "many", "QUIZ_TIMEOUT": "soon"}))
	require.ErrorContains(t, err, "QUIZ_COUNT")
	require.ErrorContains(t, err, "QUIZ_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"count", func(c *Config) { c.Count = 0 }, "question count"},
		{"delay", func(c *Config) { c.RequestDelay = -time.Second }, "negative"},
		{"threshold", func(c *Config) { c.MatchThreshold = 1.5 }, "threshold"},
		{"tie break", func(c *Config) { c.TieBreak = "random" }, "tie-break"},
		{"url", func(c *Config) { c.BaseURL = "ftp://x" }, "base URL"},
		{"limits", func(c *Config) { c.Target = -1 }, "collector"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preguntas: 10\ntipo: testOf\n"), 0o644))
	t.Setenv("QUIZ_COUNT", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "testOf", cfg.Kind)
	require.Equal(t, 5, cfg.Count, "environment beats the file")

	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	cfg.RegisterFlags(fs, Remote, Collect)
	require.NoError(t, fs.Parse([]string{"-config", path, "-preguntas", "1", "-max-iter", "3"}))
	require.Equal(t, 1, cfg.Count, "flags beat everything")
	require.Equal(t, 3, cfg.MaxIterations)
	require.Equal(t, "testOf", cfg.Kind)
}

func TestPathFromArgs(t *testing.T) {
	none := env(nil)
	require.Equal(t, "a.yaml", PathFromArgs([]string{"-kb", "x", "-config", "a.yaml"}, none))
	require.Equal(t, "b.yaml", PathFromArgs([]string{"--config=b.yaml"}, none))
	require.Equal(t, "c.yaml", PathFromArgs([]string{"-kb", "x"}, env(map[string]string{"QUIZ_CONFIG": "c.yaml"})))
	require.Equal(t, "", PathFromArgs(nil, none))
}
