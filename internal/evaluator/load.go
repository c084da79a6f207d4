package evaluator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"llmeval/internal/catalog"
	"llmeval/internal/engine"
)

// Load returns the container for the selected model, fetching and
// initializing it on the first call. Concurrent calls for the same
// selection share one fetch. Once loaded, Load does no further work.
func (e *Evaluator) Load(ctx context.Context) (*engine.Container, error) {
	e.mu.Lock()
	if e.phase == PhaseLoaded && e.container != nil {
		c := e.container
		e.mu.Unlock()
		return c, nil
	}
	epoch, cfg := e.epoch, e.selected
	e.phase = PhaseLoading
	e.mu.Unlock()

	v, err, _ := e.loads.Do(strconv.FormatUint(epoch, 10), func() (any, error) {
		return e.load(ctx, epoch, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.(*engine.Container), nil
}

func (e *Evaluator) load(ctx context.Context, epoch uint64, cfg catalog.Configuration) (*engine.Container, error) {
	// A shared call may have completed between the fast path and Do.
	e.mu.Lock()
	if e.epoch == epoch && e.phase == PhaseLoaded && e.container != nil {
		c := e.container
		e.mu.Unlock()
		return c, nil
	}
	e.mu.Unlock()

	e.accel.SetCacheLimit(e.cacheLimit)
	start := time.Now()
	e.log.Info().Str("event", EventLoadStart).Str("model", cfg.ID).Msg("loading model")
	e.publish(Event{Name: EventLoadStart, ModelID: cfg.ID})

	name := cfg.Name
	if name == "" {
		name = cfg.ID
	}
	c, err := e.loader.Load(ctx, cfg, func(fraction float64) {
		pct := int(fraction * 100)
		e.mu.Lock()
		if e.epoch == epoch {
			e.modelInfo = fmt.Sprintf("Downloading %s: %d%%", name, pct)
		}
		e.mu.Unlock()
		e.publish(Event{Name: EventLoadProgress, ModelID: cfg.ID, Fields: map[string]any{"percent": pct}})
	})
	loadDuration.Observe(time.Since(start).Seconds())

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		if c != nil {
			_ = c.Close()
		}
		loadsTotal.WithLabelValues("stale").Inc()
		e.log.Info().Str("event", "load_stale").Str("model", cfg.ID).Msg("selection changed during load")
		return nil, ErrSelectionChanged
	}
	if err != nil {
		e.phase = PhaseIdle
		e.modelInfo = failedOutput(err)
		e.mu.Unlock()
		loadsTotal.WithLabelValues("error").Inc()
		e.log.Error().Err(err).Str("event", EventLoadError).Str("model", cfg.ID).Msg("load failed")
		e.publish(Event{Name: EventLoadError, ModelID: cfg.ID, Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}
	e.container = c
	e.phase = PhaseLoaded
	e.modelInfo = fmt.Sprintf("Loaded %s. Weights: %dM", cfg.ID, c.WeightsBytes()/(1<<20))
	info := e.modelInfo
	e.mu.Unlock()

	loadsTotal.WithLabelValues("ok").Inc()
	e.log.Info().
		Str("event", EventLoadReady).
		Str("model", cfg.ID).
		Int64("weights_bytes", c.WeightsBytes()).
		Dur("dur", time.Since(start)).
		Msg("model loaded")
	e.publish(Event{Name: EventLoadReady, ModelID: cfg.ID, Fields: map[string]any{"info": info}})
	return c, nil
}

// Select makes id the current model. The previous container is closed and
// the accelerator cache cleared so the next Load fetches the new model.
// Selecting the current model is a no-op.
func (e *Evaluator) Select(id string) error {
	cfg, err := e.catalog.Lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrGenerationRunning
	}
	if cfg.ID == e.selected.ID {
		e.mu.Unlock()
		return nil
	}
	prev := e.container
	from := e.selected.ID
	e.selected = cfg
	e.epoch++
	e.phase = PhaseIdle
	e.container = nil
	e.modelInfo = ""
	e.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			e.log.Warn().Err(err).Str("model", from).Msg("close previous model")
		}
	}
	e.ClearCache()
	e.log.Info().Str("event", EventModelSelected).Str("from", from).Str("model", cfg.ID).Msg("model selected")
	e.publish(Event{Name: EventModelSelected, ModelID: cfg.ID, Fields: map[string]any{"from": from}})
	return nil
}
