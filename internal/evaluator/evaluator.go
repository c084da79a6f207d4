package evaluator

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
)

// Evaluator owns the selected model, its load state, and the output of the
// current generation.
type Evaluator struct {
	catalog *catalog.Catalog
	loader  engine.Loader
	accel   engine.Accelerator
	pub     EventPublisher
	log     zerolog.Logger
	now     func() time.Time

	cadence    int
	maxTokens  int
	params     engine.GenerateParameters
	cacheLimit int64

	loads  singleflight.Group
	memory *ttlcache.Cache[string, engine.MemoryStats]

	mu        sync.Mutex
	selected  catalog.Configuration
	epoch     uint64
	phase     LoadPhase
	container *engine.Container
	modelInfo string
	running   bool
	session   Session
	stat      string
}

// New constructs an Evaluator with the catalog default selected and unloaded.
func New(cfg Config) (*Evaluator, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		catalog: cfg.Catalog,
		loader:  cfg.Loader,
		accel:   cfg.Accelerator,
		pub:     cfg.Publisher,
		log:     cfg.Logger.With().Str("component", "evaluator").Logger(),
		now:     cfg.Now,
		cadence: cfg.DisplayCadence,
		params: engine.GenerateParameters{
			Temperature: float32(*cfg.Temperature),
			TopP:        float32(cfg.TopP),
			MaxTokens:   cfg.MaxTokens,
		},
		maxTokens:  cfg.MaxTokens,
		cacheLimit: cfg.CacheLimitBytes,
		memory:     newMemoryCache(cfg),
		selected:   cfg.Catalog.Default(),
		phase:      PhaseIdle,
	}, nil
}

// Models returns the catalog in display order.
func (e *Evaluator) Models() []catalog.Configuration { return e.catalog.List() }

// Selected returns the currently selected model configuration.
func (e *Evaluator) Selected() catalog.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Output returns the current output text.
func (e *Evaluator) Output() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Output
}

// Running reports whether a generation is in progress.
func (e *Evaluator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Snapshot returns a consistent copy of the observable state.
func (e *Evaluator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Model:     e.selected,
		Phase:     e.phase,
		ModelInfo: e.modelInfo,
		Running:   e.running,
		Session:   e.session,
		Stat:      e.stat,
	}
}

// Close releases the loaded container, if any.
func (e *Evaluator) Close() error {
	e.mu.Lock()
	c := e.container
	e.container = nil
	e.phase = PhaseIdle
	e.epoch++
	e.mu.Unlock()
	if c != nil {
		return c.Close()
	}
	return nil
}

func (e *Evaluator) publish(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("event", ev.Name).Msg("publisher panic")
		}
	}()
	e.pub.Publish(ev)
}
