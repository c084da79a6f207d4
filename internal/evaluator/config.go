package evaluator

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultDisplayCadence = 4
	defaultMaxTokens      = 4000
	defaultTemperature    = 0.6
	defaultCacheLimit     = 20 << 20
	defaultMemoryTTL      = time.Second
)

// Config encapsulates all tunables for Evaluator construction.
type Config struct {
	Catalog     *catalog.Catalog
	Loader      engine.Loader
	Accelerator engine.Accelerator
	Publisher   EventPublisher
	Logger      zerolog.Logger

	// DisplayCadence is the number of tokens between output refreshes.
	DisplayCadence int
	// MaxTokens is the token budget after which generation stops.
	MaxTokens int
	// Temperature defaults when nil; a pointer to 0 selects greedy decoding.
	Temperature     *float64
	TopP            float64
	CacheLimitBytes int64
	// MemoryTTL bounds how often memory statistics are re-sampled.
	MemoryTTL time.Duration
	// Now is the clock used for seeds and session timestamps.
	Now func() time.Time
}

func (c Config) withDefaults() (Config, error) {
	if c.Catalog == nil {
		return c, errors.New("evaluator: catalog is required")
	}
	if c.Loader == nil {
		return c, errors.New("evaluator: loader is required")
	}
	if c.Accelerator == nil {
		c.Accelerator = engine.NewRuntimeAccelerator()
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.DisplayCadence <= 0 {
		c.DisplayCadence = defaultDisplayCadence
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature == nil {
		t := defaultTemperature
		c.Temperature = &t
	}
	if c.CacheLimitBytes <= 0 {
		c.CacheLimitBytes = defaultCacheLimit
	}
	if c.MemoryTTL <= 0 {
		c.MemoryTTL = defaultMemoryTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}
