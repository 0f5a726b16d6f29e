package config

import (
	"flag"
	"strings"
)

// Group selects which settings a command exposes as flags.
type Group int

const (
	Remote Group = iota
	Matching
	Collect
	KB
	Serve
)

// ConfigFlag names the flag that points at the YAML file.
const ConfigFlag = "config"

// PathFromArgs finds the -config value in args before flags are parsed,
// falling back to QUIZ_CONFIG.
func PathFromArgs(args []string, getenv func(string) string) string {
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		if name == a || a == "--" {
			continue
		}
		if v, ok := strings.CutPrefix(name, ConfigFlag+"="); ok {
			return v
		}
		if name == ConfigFlag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return getenv("QUIZ_CONFIG")
}

// RegisterFlags binds the settings of groups to fs, using the current values
// as defaults so that flags override every other source.
func (c *Config) RegisterFlags(fs *flag.FlagSet, groups ...Group) {
	fs.String(ConfigFlag, "", "YAML configuration file (also QUIZ_CONFIG)")
	for _, g := range groups {
		switch g {
		case Remote:
			fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "quiz site base URL")
			fs.StringVar(&c.Kind, "tipo", c.Kind, "quiz kind (testArb, testOf)")
			fs.IntVar(&c.Count, "preguntas", c.Count, "questions per quiz (1, 5, 10, 25)")
			fs.DurationVar(&c.RequestDelay, "delay", c.RequestDelay, "pause between submissions")
			fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "HTTP request timeout")
			fs.StringVar(&c.UserAgent, "user-agent", c.UserAgent, "User-Agent header (empty for the built-in one)")
		case Matching:
			fs.Float64Var(&c.MatchThreshold, "threshold", c.MatchThreshold, "minimum fuzzy similarity accepted")
			fs.StringVar(&c.TieBreak, "tie-break", c.TieBreak, "fuzzy tie handling (earliest, reject)")
			fs.BoolVar(&c.TrustDecrease, "trust-decrease", c.TrustDecrease, "a score drop of one proves the baseline option correct")
		case Collect:
			fs.IntVar(&c.Target, "target", c.Target, "stop once the bank holds this many questions (0 = no target)")
			fs.IntVar(&c.MaxIterations, "max-iter", c.MaxIterations, "maximum iterations (0 = unlimited)")
			fs.IntVar(&c.StopAfterNoNew, "stop-after-no-new", c.StopAfterNoNew, "stop after this many iterations without new questions (0 = never)")
			fs.DurationVar(&c.IterationDelay, "iter-delay", c.IterationDelay, "pause between iterations")
		case KB:
			fs.StringVar(&c.KBPath, "kb", c.KBPath, "knowledge base JSON file")
		case Serve:
			fs.StringVar(&c.ServeAddr, "addr", c.ServeAddr, "listen address")
			fs.Func("cors", "comma separated allowed origins (default "+strings.Join(c.CORSOrigins, ",")+")", func(s string) error {
				c.CORSOrigins = SplitList(s)
				return nil
			})
			fs.BoolVar(&c.TrustProxy, "trust-proxy", c.TrustProxy, "rate limit by X-Forwarded-For (only behind a reverse proxy)")
		}
	}
}
