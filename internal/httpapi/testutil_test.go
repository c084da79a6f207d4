package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
	"llmeval/internal/evaluator"
)

type fakeModel struct {
	pieces []string
	err    error
	gate   chan struct{}
	seen   chan struct{}
	// delay paces tokens; the stream then honors ctx like a real backend.
	delay time.Duration
}

func (f *fakeModel) Stream(ctx context.Context, in engine.Input, p engine.GenerateParameters, emit func(engine.Token) bool) error {
	for i, s := range f.pieces {
		if f.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.delay):
			}
		}
		if !emit(engine.Token{ID: int32(i), Piece: s}) {
			return nil
		}
		if i == 0 && f.gate != nil {
			close(f.seen)
			<-f.gate
		}
	}
	return f.err
}

type fakeLoader struct {
	model engine.Model
	err   error
}

func (l *fakeLoader) Load(ctx context.Context, cfg catalog.Configuration, progress engine.ProgressFunc) (*engine.Container, error) {
	if l.err != nil {
		return nil, l.err
	}
	progress(1)
	return engine.NewContainer(engine.ModelContext{Configuration: cfg, Model: l.model, WeightsBytes: 5 << 20}, nil), nil
}

type fakeAccel struct{}

func (fakeAccel) SetCacheLimit(int64) {}
func (fakeAccel) ClearCache()         {}
func (fakeAccel) Memory() engine.MemoryStats {
	return engine.MemoryStats{Active: 10, Cache: 20, Peak: 30, CacheLimit: 40}
}

type testEnv struct {
	ev     *evaluator.Evaluator
	events *evaluator.Broadcaster
	mux    http.Handler
}

func newTestEnv(t *testing.T, l *fakeLoader) testEnv {
	t.Helper()
	if l.model == nil && l.err == nil {
		l.model = &fakeModel{pieces: []string{"a", "b", "c", "d", "e"}}
	}
	cat, err := catalog.New("m1", []catalog.Configuration{
		{ID: "m1", Name: "One", Template: catalog.TemplatePlain, DefaultPrompt: "say hi"},
		{ID: "m2", Name: "Two", Template: catalog.TemplateChatML, Path: "/tmp/two.gguf"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	b := evaluator.NewBroadcaster()
	ev, err := evaluator.New(evaluator.Config{
		Catalog:     cat,
		Loader:      l,
		Accelerator: fakeAccel{},
		Publisher:   b,
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	t.Cleanup(func() {
		_ = ev.Close()
		b.Close()
	})
	return testEnv{ev: ev, events: b, mux: NewMux(ev, b)}
}
