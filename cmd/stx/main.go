package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/stx"
	"github.com/wippyai/stx/alloc"
	"github.com/wippyai/stx/engine"
)

func main() {
	flags := pflag.NewFlagSet("stx", pflag.ContinueOnError)
	var (
		configPath  = flags.String("config", os.Getenv("STX_CONFIG"), "YAML configuration file (env STX_CONFIG)")
		backend     = flags.String("backend", "", "Memory backend: heap or wasm")
		pages       = flags.Uint32("pages", 0, "Initial memory pages (heap backend)")
		maxPages    = flags.Uint32("max-pages", 0, "Maximum memory pages")
		limit       = flags.Uint32("limit", 0, "Maximum bytes held by strings (0 = no limit)")
		align       = flags.Uint32("align", 0, "Block alignment (0 = header size)")
		script      = flags.String("script", "", "Run commands from file instead of stdin")
		interactive = flags.BoolP("interactive", "i", false, "Interactive mode with TUI")
		verbose     = flags.BoolP("verbose", "v", false, "Debug logging to stderr")
	)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: stx [--config file.yaml] [--backend heap|wasm] [--script file]")
		fmt.Fprintln(os.Stderr, "       stx -i  (interactive mode)")
		fmt.Fprintln(os.Stderr)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flags.Changed("backend") {
		cfg.Backend = *backend
	}
	if flags.Changed("pages") {
		cfg.Pages = *pages
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages = *maxPages
	}
	if flags.Changed("limit") {
		cfg.Limit = *limit
	}
	if flags.Changed("align") {
		cfg.Align = *align
	}
	if flags.Changed("verbose") {
		cfg.Verbose = *verbose
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tui := *interactive || (*script == "" && term.IsTerminal(int(os.Stdin.Fd())))
	if err := run(cfg, *script, tui); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger and installs it in every package.
func newLogger(verbose bool) (*zap.Logger, error) {
	logger := zap.NewNop()
	if verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	stx.SetLogger(logger)
	alloc.SetLogger(logger)
	engine.SetLogger(logger)
	return logger, nil
}

func run(cfg config, script string, tui bool) error {
	ctx := context.Background()

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	if tui {
		return runInteractive(ctx, sess)
	}

	var in io.Reader = os.Stdin
	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	}
	return sess.run(in, os.Stdout)
}
