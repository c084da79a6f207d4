package evaluator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
)

var errBoom = errors.New("boom")

// fakeModel streams pieces. When gate is set it signals started after the
// first token and waits on gate before continuing.
type fakeModel struct {
	pieces  []string
	err     error
	started chan struct{}
	gate    chan struct{}

	mu    sync.Mutex
	seeds []int
	texts []string
	temps []float32
}

func (f *fakeModel) Stream(ctx context.Context, in engine.Input, p engine.GenerateParameters, emit func(engine.Token) bool) error {
	f.mu.Lock()
	f.seeds = append(f.seeds, p.Seed)
	f.texts = append(f.texts, in.Text)
	f.temps = append(f.temps, p.Temperature)
	f.mu.Unlock()
	for i, s := range f.pieces {
		if !emit(engine.Token{ID: int32(i + 1), Piece: s}) {
			return nil
		}
		if i == 0 && f.gate != nil {
			if f.started != nil {
				close(f.started)
			}
			select {
			case <-f.gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return f.err
}

func (f *fakeModel) Seeds() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.seeds...)
}

// fakeLoader builds containers around model. When gate is set Load signals
// entered and blocks until gate is closed.
type fakeLoader struct {
	model    engine.Model
	weights  int64
	err      error
	progress []float64
	entered  chan struct{}
	gate     chan struct{}

	calls  atomic.Int32
	closed atomic.Int32
	mu     sync.Mutex
	loaded []string
}

func (l *fakeLoader) Load(ctx context.Context, cfg catalog.Configuration, progress engine.ProgressFunc) (*engine.Container, error) {
	l.calls.Add(1)
	l.mu.Lock()
	l.loaded = append(l.loaded, cfg.ID)
	l.mu.Unlock()
	if l.gate != nil {
		if l.entered != nil {
			close(l.entered)
		}
		<-l.gate
	}
	for _, f := range l.progress {
		progress(f)
	}
	if l.err != nil {
		return nil, l.err
	}
	mc := engine.ModelContext{Configuration: cfg, Model: l.model, WeightsBytes: l.weights}
	return engine.NewContainer(mc, func() error {
		l.closed.Add(1)
		return nil
	}), nil
}

func (l *fakeLoader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}

type fakeAccel struct {
	mu       sync.Mutex
	limit    int64
	cache    int64
	clears   int
	memCalls int
}

func (a *fakeAccel) SetCacheLimit(b int64) {
	a.mu.Lock()
	a.limit = b
	a.mu.Unlock()
}

func (a *fakeAccel) ClearCache() {
	a.mu.Lock()
	a.clears++
	a.cache = 0
	a.mu.Unlock()
}

func (a *fakeAccel) Memory() engine.MemoryStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memCalls++
	return engine.MemoryStats{Active: 1 << 20, Cache: a.cache, Peak: 2 << 20, CacheLimit: a.limit}
}

func (a *fakeAccel) Clears() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clears
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New("a", []catalog.Configuration{
		{ID: "a", Name: "Model A", Template: catalog.TemplatePlain},
		{ID: "b", Name: "Model B", Template: catalog.TemplateChatML},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

type fixture struct {
	ev     *Evaluator
	loader *fakeLoader
	accel  *fakeAccel
	pub    *MemoryPublisher
}

func newFixture(t *testing.T, l *fakeLoader, mutate func(*Config)) fixture {
	t.Helper()
	if l.model == nil {
		l.model = &fakeModel{pieces: []string{"ok"}}
	}
	acc := &fakeAccel{}
	pub := NewMemoryPublisher()
	cfg := Config{
		Catalog:     testCatalog(t),
		Loader:      l,
		Accelerator: acc,
		Publisher:   pub,
		Logger:      zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	ev, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = ev.Close() })
	return fixture{ev: ev, loader: l, accel: acc, pub: pub}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting")
	}
}

// outputs returns the output field of every published output event.
func outputs(p *MemoryPublisher) []string {
	var out []string
	for _, e := range p.Named(EventOutput) {
		s, _ := e.Fields["output"].(string)
		out = append(out, s)
	}
	return out
}

func letters(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i%26))
	}
	return out
}
