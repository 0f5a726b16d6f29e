package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"psp.com/arbitro-quiz/internal/config"
	"psp.com/arbitro-quiz/internal/scraper"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdout, stderr io.Writer) int
}

var commands = []*Command{
	command("extract", "Deduce the answers of one quiz instance", []string{
		"arbitro-quiz extract [-tipo testArb] [-preguntas 25] [-csv out.csv] [-json out.json] [-xlsx out.xlsx] [-sqlite out.db] [-kb bank.json]",
	}, runExtract),
	command("collect", "Grow the knowledge base with repeated extractions", []string{
		"arbitro-quiz collect [-kb all_answers.json] [-target N] [-max-iter N] [-stop-after-no-new 5] [-print-batch] [-print-final]",
	}, runCollect),
	command("solve", "Answer a fresh quiz from the knowledge base", []string{
		"arbitro-quiz solve -kb all_answers.json [-print] [-json exam.json] [-pdf exam.pdf]",
	}, runSolve),
	command("export", "Write the resolved knowledge base entries to other formats", []string{
		"arbitro-quiz export -kb all_answers.json [-csv out.csv] [-json out.json] [-xlsx out.xlsx] [-sqlite out.db]",
	}, runExport),
	command("serve", "Serve the knowledge base over a read-only HTTP API", []string{
		"arbitro-quiz serve -kb all_answers.json [-addr :8080] [-cors origin1,origin2]",
	}, runServe),
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(stdout)
		return ExitOK
	}
	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return ExitUsage
	}
	return cmd.Run(args[1:], stdout, stderr)
}

func command(name, summary string, usage []string, runner func(cmd *Command) func(args []string, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{Name: name, Summary: summary, Usage: usage}
	cmd.Run = runner(cmd)
	return cmd
}

func findCommand(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  arbitro-quiz <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"arbitro-quiz <command> --help\" for more information.")
}

func printCommandUsage(cmd *Command, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
}

// settings is what every command gets after flag parsing.
type settings struct {
	cfg    config.Config
	logger *slog.Logger
	trace  io.Writer
	args   []string
}

// setup loads the configuration, binds the flags of groups plus the ones
// extra defines, parses args and validates the result. When it returns nil
// settings the command must exit with the returned code.
func setup(cmd *Command, args []string, stderr io.Writer, groups []config.Group, extra func(fs *flag.FlagSet)) (*settings, int) {
	exit := func(code int) (*settings, int) { return nil, code }

	cfg, err := config.Load(config.PathFromArgs(args, os.Getenv))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exit(ExitError)
	}
	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.RegisterFlags(fs, groups...)
	verbose := fs.Bool("v", false, "debug logging")
	trace := fs.Bool("trace", false, "echo raw pages to stderr")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return exit(ExitUsage)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return exit(ExitUsage)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	s := &settings{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		args:   fs.Args(),
	}
	if *trace {
		s.trace = stderr
	}
	return s, ExitOK
}

func (s *settings) client() *scraper.Client {
	c := scraper.NewClient(s.cfg.BaseURL, s.cfg.Timeout)
	if s.cfg.UserAgent != "" {
		c.UserAgent = s.cfg.UserAgent
	}
	c.Trace = s.trace
	c.Logger = s.logger
	return c
}

// writeFile creates path and hands it to write, removing it if write fails.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return write(f)
}
