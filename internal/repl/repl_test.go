package repl

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
	"llmeval/internal/evaluator"
	"llmeval/internal/render"
)

type fakeModel struct{ pieces []string }

func (f *fakeModel) Stream(ctx context.Context, in engine.Input, p engine.GenerateParameters, emit func(engine.Token) bool) error {
	for i, s := range f.pieces {
		if !emit(engine.Token{ID: int32(i), Piece: s}) {
			return nil
		}
	}
	return nil
}

type fakeLoader struct {
	model engine.Model
	err   error
	// steps are reported as download progress, stepDelay apart.
	steps     []float64
	stepDelay time.Duration
}

func (l *fakeLoader) Load(ctx context.Context, cfg catalog.Configuration, progress engine.ProgressFunc) (*engine.Container, error) {
	for _, f := range l.steps {
		time.Sleep(l.stepDelay)
		progress(f)
	}
	if l.err != nil {
		return nil, l.err
	}
	return engine.NewContainer(engine.ModelContext{Configuration: cfg, Model: l.model, WeightsBytes: 5 << 20}, nil), nil
}

type fakeAccel struct{}

func (fakeAccel) SetCacheLimit(int64) {}
func (fakeAccel) ClearCache()         {}
func (fakeAccel) Memory() engine.MemoryStats {
	return engine.MemoryStats{Active: 1 << 20, Cache: 2 << 20, Peak: 3 << 20, CacheLimit: 20 << 20}
}

func newEvaluator(t *testing.T, l *fakeLoader) *evaluator.Evaluator {
	t.Helper()
	if l.model == nil {
		l.model = &fakeModel{pieces: []string{"**a", "b**", "c", "d", "e"}}
	}
	cat, err := catalog.New("m1", []catalog.Configuration{
		{ID: "m1", Template: catalog.TemplatePlain, DefaultPrompt: "tell me a joke", Quant: "Q4_K_M", SizeMB: 900},
		{ID: "m2", Template: catalog.TemplatePlain, Path: "/models/m2.gguf"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ev, err := evaluator.New(evaluator.Config{Catalog: cat, Loader: l, Accelerator: fakeAccel{}, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	t.Cleanup(func() { _ = ev.Close() })
	return ev
}

func run(t *testing.T, ev Evaluator, input string, mutate func(*REPL)) string {
	t.Helper()
	var out bytes.Buffer
	r := New(ev, Options{In: strings.NewReader(input), Out: &out, Logger: zerolog.Nop()})
	if mutate != nil {
		mutate(r)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestGenerateStreamsPlainOutput(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, "hi\n:quit\n", nil)
	if !strings.Contains(out, "**ab**cde\n") {
		t.Fatalf("output missing generation:\n%s", out)
	}
	if !strings.Contains(out, "Tokens/second: ") {
		t.Fatalf("output missing stat:\n%s", out)
	}
	if ev.Snapshot().Session.Prompt != "hi" {
		t.Fatalf("prompt = %q", ev.Snapshot().Session.Prompt)
	}
}

func TestEmptyLineUsesDefaultPrompt(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, "\n", nil)
	if got := ev.Snapshot().Session.Prompt; got != "tell me a joke" {
		t.Fatalf("prompt = %q", got)
	}
	if !strings.Contains(out, "empty line uses: tell me a joke") {
		t.Fatalf("missing hint:\n%s", out)
	}
}

func TestMarkdownStyleRendersOnCompletion(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, ":style md\nhi\n", nil)
	if strings.Contains(out, "**") {
		t.Fatalf("markdown markers not rendered:\n%s", out)
	}
	if !strings.Contains(render.StripANSI(out), "abcde") {
		t.Fatalf("output missing text:\n%s", out)
	}
}

func TestModelCommands(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, ":models\n:model 2\n:model zzz\n:model 9\n", nil)
	for _, want := range []string{"*  1. m1", "   2. m2", "Q4_K_M 900MB", "local", "selected m2", "model not found: zzz", "no model number 9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if ev.Selected().ID != "m2" {
		t.Fatalf("selected = %s", ev.Selected().ID)
	}
}

func TestStyleCommand(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	var r *REPL
	out := run(t, ev, ":style\n:style markdown\n:style html\n", func(x *REPL) { r = x })
	if !strings.Contains(out, "style: plain (options: plain, markdown)") {
		t.Fatalf("missing style listing:\n%s", out)
	}
	if !strings.Contains(out, "unknown display style") || r.style != render.Markdown {
		t.Fatalf("style handling wrong (style=%s):\n%s", r.style, out)
	}
}

func TestLoadAndStats(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, ":load\n:stats\n", nil)
	for _, want := range []string{"Loaded m1. Weights: 5M", "active: 1.0 MiB", "peak: 3.0 MiB", "cache limit: 20.0 MiB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLoadFailurePrintsFailed(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{err: errors.New("no such file")})
	out := run(t, ev, ":load\nhi\n", nil)
	if strings.Count(out, "Failed: no such file") != 2 {
		t.Fatalf("expected two failures in:\n%s", out)
	}
}

func TestCopyWithoutTerminalPrints(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, ":copy\nhi\n:copy\n", nil)
	if !strings.Contains(out, "nothing to copy") {
		t.Fatalf("expected empty copy error:\n%s", out)
	}
	if strings.Count(out, "**ab**cde") != 2 {
		t.Fatalf("expected output printed by :copy:\n%s", out)
	}
}

func TestCopyWritesOSC52OnTerminal(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM", "xterm-256color")
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, "hi\n:copy\n", func(r *REPL) { r.tty = true })
	want := "]52;c;" + base64.StdEncoding.EncodeToString([]byte("**ab**cde"))
	if !strings.Contains(out, want) || !strings.Contains(out, "copied to clipboard") {
		t.Fatalf("missing OSC 52 sequence %q in:\n%q", want, out)
	}
}

func TestUnknownCommandAndHelp(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	out := run(t, ev, ":bogus\n:help\n", nil)
	if !strings.Contains(out, "unknown command :bogus") || !strings.Contains(out, ":model <id|n>") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(ev, Options{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestPromptShowsDownloadProgress(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{steps: []float64{0.25, 0.5, 0.75}, stepDelay: 40 * time.Millisecond})
	out := run(t, ev, "hi\n:quit\n", func(r *REPL) { r.poll = 2 * time.Millisecond })
	for _, want := range []string{"Downloading m1: 25%", "Downloading m1: 50%", "**ab**cde"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestQuitReleasesInputReader(t *testing.T) {
	ev := newEvaluator(t, &fakeLoader{})
	before := runtime.NumGoroutine()
	run(t, ev, ":quit\nleft over\nmore\n", nil)
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("input goroutine still running after :quit (%d > %d)", runtime.NumGoroutine(), before)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
