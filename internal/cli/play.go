package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/daydream"
	"github.com/aretw0/daydream/internal/config"
	"github.com/aretw0/daydream/internal/presentation/tui"
	"github.com/aretw0/daydream/pkg/session"
	"golang.org/x/term"
)

// PlayOptions configures the terminal player.
type PlayOptions struct {
	SessionID string
	Headless  bool
	Fresh     bool
	Input     io.Reader
	Output    io.Writer
}

// RunPlay resumes (or starts) a session and drives it from the terminal until
// the user quits or a signal arrives.
func RunPlay(cfg *config.Config, opts PlayOptions) error {
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if opts.SessionID == "" {
		opts.SessionID = session.DefaultKey
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	// Decorations only make sense for a person at a terminal.
	if f, ok := opts.Input.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		opts.Headless = true
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	engine, backend, err := NewEngine(sigCtx, cfg, EngineOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("error initializing daydream: %w", err)
	}
	defer backend.Close()

	if opts.Fresh {
		engine.Manager().Reset(sigCtx, opts.SessionID)
	}

	if !opts.Headless {
		tui.PrintBanner(opts.Output, strings.TrimSpace(daydream.Version))
	}

	exists, _ := engine.Manager().Exists(sigCtx, opts.SessionID)
	if exists {
		logger.Info("Session Resumed", "session_id", opts.SessionID)
		if !opts.Headless {
			printSystemMessage(opts.Output, "Resuming session '%s'.", opts.SessionID)
		}
	}

	r := daydream.NewRunner()
	r.Input = NewInterruptibleReader(opts.Input, sigCtx.Done())
	r.Output = opts.Output
	r.Headless = opts.Headless
	if !opts.Headless {
		r.Renderer = tui.NewRenderer()
	}

	runErr := r.Run(sigCtx, engine.Open(sigCtx, opts.SessionID))
	if sigCtx.Signal() != nil {
		fmt.Fprintln(opts.Output)
		printSystemMessage(opts.Output, "Interrupted. Your daydream is saved.")
	}
	return handleExecutionError(runErr)
}
