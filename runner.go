package daydream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/daydream/internal/runtime"
	"github.com/aretw0/daydream/pkg/domain"
)

// Runner drives a Controller from a line-oriented terminal.
//
// On every screen a number picks from the listed choices and a single letter
// runs a command (b back, c complete, r reset, s share, q quit). Any other
// text is submitted as a custom prompt.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	lastStatus string
}

// ContentRenderer transforms the summary before it is printed.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Input and Output must be set before Run.
func NewRunner() *Runner {
	return &Runner{}
}

// Run loops until the user quits, the input ends or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, ctrl *Controller) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- Daydream ---")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		view := ctrl.View()
		r.display(view)

		fmt.Fprint(r.Output, "> ")
		text, err := lineReader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(text) == "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		input := strings.TrimSpace(text)
		if input == "q" || input == "quit" || input == "exit" {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}
		if input == "" {
			continue
		}

		if opErr := r.dispatch(ctx, ctrl, view, input); opErr != nil {
			if errors.Is(opErr, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(r.Output, "!! "+runtime.UserMessage(opErr))
		}

		if errors.Is(err, io.EOF) {
			r.display(ctrl.View())
			return nil
		}
	}
}

// dispatch maps one line of input to a controller operation.
func (r *Runner) dispatch(ctx context.Context, ctrl *Controller, view domain.ViewModel, input string) error {
	switch view.Screen {
	case domain.ScreenFinal:
		switch input {
		case "b":
			return ctrl.GoBackFromFinal(ctx)
		case "r":
			return ctrl.Reset(ctx)
		case "s":
			fmt.Fprintln(r.Output, view.ShareText)
			return nil
		}
		fmt.Fprintln(r.Output, "Choose s, b, r or q.")
		return nil

	case domain.ScreenActive:
		switch input {
		case "b":
			return ctrl.GoBack(ctx)
		case "r":
			return ctrl.Reset(ctx)
		case "c":
			if !view.CanComplete {
				fmt.Fprintf(r.Output, "Keep dreaming a little longer before waking up (%d/%d).\n",
					view.CycleCount, max(1, ctrl.Policy().MinCycles))
				return nil
			}
			r.status(ctrl.Policy().WakingMessages)
			return ctrl.Complete(ctx)
		}
		if choice, ok := pick(view.Options, input); ok {
			r.status(ctrl.Policy().LoadingMessages)
			return ctrl.SelectOrSubmitPrompt(ctx, choice)
		}
		r.status(ctrl.Policy().LoadingMessages)
		return ctrl.SubmitCustomFollowup(ctx, input)

	default:
		if choice, ok := pick(view.DefaultPrompts, input); ok {
			r.status(ctrl.Policy().LoadingMessages)
			return ctrl.SelectOrSubmitPrompt(ctx, choice)
		}
		r.status(ctrl.Policy().LoadingMessages)
		return ctrl.SelectOrSubmitPrompt(ctx, input)
	}
}

func (r *Runner) display(view domain.ViewModel) {
	w := r.Output
	fmt.Fprintln(w)

	switch view.Screen {
	case domain.ScreenFinal:
		fmt.Fprintln(w, "Your daydream:")
		fmt.Fprintln(w, r.render(view.Summary))
		fmt.Fprintln(w, "[s] share  [b] back  [r] new daydream  [q] quit")

	case domain.ScreenActive:
		if trail := view.BreadcrumbTrail(); trail != "" {
			fmt.Fprintln(w, trail)
		}
		fmt.Fprintf(w, "%s\n", view.Prompt)
		printChoices(w, view.Options)
		commands := "[b] back  [r] reset"
		if view.CanComplete {
			commands += "  [c] complete"
		}
		fmt.Fprintln(w, commands+"  [q] quit  (or type your own follow-up)")

	default:
		fmt.Fprintln(w, "Start a daydream:")
		printChoices(w, view.DefaultPrompts)
		fmt.Fprintln(w, "[q] quit  (or type your own prompt)")
	}
}

func (r *Runner) render(markdown string) string {
	if r.Renderer == nil {
		return markdown
	}
	out, err := r.Renderer(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSpace(out)
}

func (r *Runner) status(messages []string) {
	if r.Headless {
		return
	}
	r.lastStatus = domain.PickMessage(messages, r.lastStatus)
	fmt.Fprintln(r.Output, r.lastStatus)
}

func printChoices(w io.Writer, choices []string) {
	for i, choice := range choices {
		fmt.Fprintf(w, "  %d) %s\n", i+1, choice)
	}
}

// pick resolves a 1-based menu number.
func pick(choices []string, input string) (string, bool) {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(choices) {
		return "", false
	}
	return choices[n-1], true
}
