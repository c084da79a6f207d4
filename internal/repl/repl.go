// Package repl is the terminal view: it reads prompts and commands line by
// line and streams the evaluator's output as it grows.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
	"llmeval/internal/evaluator"
	"llmeval/internal/render"
)

// Evaluator is the view-model the REPL drives. *evaluator.Evaluator implements it.
type Evaluator interface {
	Models() []catalog.Configuration
	Snapshot() evaluator.Snapshot
	Select(id string) error
	Load(ctx context.Context) (*engine.Container, error)
	Generate(ctx context.Context, prompt string, opts ...evaluator.GenerateOption) (evaluator.Session, error)
	Memory() engine.MemoryStats
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7B68EE"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D4FF"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FFF00"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// Options configures a REPL.
type Options struct {
	In    io.Reader
	Out   io.Writer
	Style render.Style
	// Width overrides terminal width detection when > 0.
	Width  int
	Logger zerolog.Logger
	// PollInterval is how often load progress is refreshed.
	PollInterval time.Duration
}

// REPL is a line-oriented terminal front end.
type REPL struct {
	ev    Evaluator
	in    io.Reader
	out   io.Writer
	style render.Style
	width int
	tty   bool
	log   zerolog.Logger
	poll  time.Duration
	outMu sync.Mutex
}

// New builds a REPL. In and Out default to stdin and stdout.
func New(ev Evaluator, opts Options) *REPL {
	r := &REPL{
		ev:    ev,
		in:    opts.In,
		out:   opts.Out,
		style: opts.Style,
		width: opts.Width,
		log:   opts.Logger,
		poll:  opts.PollInterval,
	}
	if r.in == nil {
		r.in = os.Stdin
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.style == "" {
		r.style = render.Plain
	}
	if r.poll <= 0 {
		r.poll = 200 * time.Millisecond
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if r.width <= 0 {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil {
				r.width = w
			}
		}
	}
	return r
}

func (r *REPL) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// Run reads input until EOF, :quit, or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	snap := r.ev.Snapshot()
	r.printf("%s\n", titleStyle.Render("llmeval"))
	r.printf("%s\n", infoStyle.Render(fmt.Sprintf("model: %s  style: %s  (:help for commands)", snap.Model.ID, r.style)))
	r.hint(snap.Model)

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(r.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		r.printf("%s", promptStyle.Render("> "))
		select {
		case <-ctx.Done():
			r.printf("\n")
			return nil
		case err := <-readErr:
			r.printf("\n")
			return err
		case line := <-lines:
			quit, err := r.handle(ctx, line)
			if err != nil {
				r.printf("%s\n", errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
		}
	}
}

func (r *REPL) hint(m catalog.Configuration) {
	if m.DefaultPrompt != "" {
		r.printf("%s\n", helpStyle.Render("empty line uses: "+m.DefaultPrompt))
	}
}

// handle executes one input line. It reports whether the REPL should exit.
func (r *REPL) handle(ctx context.Context, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ":") {
		return r.command(ctx, trimmed)
	}
	prompt := line
	if trimmed == "" {
		prompt = r.ev.Snapshot().Model.DefaultPrompt
		if prompt == "" {
			return false, nil
		}
		r.printf("%s\n", infoStyle.Render(prompt))
	}
	return false, r.generate(ctx, prompt)
}

// generate runs one generation and streams the output. Plain style prints
// the growing suffix; markdown renders once the generation finishes.
func (r *REPL) generate(ctx context.Context, prompt string) error {
	stop := r.watchLoad(ctx)
	printed := ""
	sess, err := r.ev.Generate(ctx, prompt, evaluator.OnOutput(func(text string) {
		// The cleared output arrives before the model loads.
		if text == "" {
			return
		}
		stop()
		if r.style != render.Plain {
			return
		}
		if strings.HasPrefix(text, printed) {
			r.printf("%s", text[len(printed):])
		} else {
			r.printf("\n%s", text)
		}
		printed = text
	}))
	stop()
	if errors.Is(err, evaluator.ErrGenerationRunning) {
		return err
	}
	if r.style == render.Plain {
		if err != nil && printed != sess.Output {
			r.printf("\n%s", errorStyle.Render(sess.Output))
		}
		r.printf("\n")
	} else {
		out := render.Render(sess.Output, r.style, r.width)
		if err != nil {
			out = errorStyle.Render(sess.Output)
		}
		r.printf("%s\n", out)
	}
	if err == nil {
		r.printf("%s\n", statStyle.Render(r.ev.Snapshot().Stat))
	}
	return nil
}

// watchLoad prints model info while a load is in progress. The returned
// func stops the watcher and is safe to call more than once.
func (r *REPL) watchLoad(ctx context.Context) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(finished)
		t := time.NewTicker(r.poll)
		defer t.Stop()
		last := ""
		inline := false
		for {
			select {
			case <-done:
				if inline {
					r.printf("\n")
				}
				return
			case <-ctx.Done():
				return
			case <-t.C:
				snap := r.ev.Snapshot()
				if snap.Phase != evaluator.PhaseLoading || snap.ModelInfo == last || snap.ModelInfo == "" {
					continue
				}
				last = snap.ModelInfo
				if r.tty {
					r.printf("\r\x1b[2K%s", infoStyle.Render(last))
					inline = true
				} else {
					r.printf("%s\n", infoStyle.Render(last))
				}
			}
		}
	}()
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}
