package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/config"
	"llmeval/internal/engine"
	"llmeval/internal/evaluator"
)

// app is the wired object graph shared by serve and run.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	store  *catalog.Store
	cat    *catalog.Catalog
	events *evaluator.Broadcaster
	ev     *evaluator.Evaluator
	stop   func()
}

// newCatalog combines the builtin checkpoints with any *.gguf already
// present in the models directory.
func newCatalog(cfg config.Config) (*catalog.Store, *catalog.Catalog, error) {
	store, err := catalog.NewStore(cfg.ModelsDir, cfg.DownloadURL)
	if err != nil {
		return nil, nil, fmt.Errorf("models dir: %w", err)
	}
	local, err := catalog.LoadDir(store.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan models: %w", err)
	}
	cat, err := catalog.New(cfg.DefaultModel, catalog.Builtin, local)
	if err != nil {
		return nil, nil, err
	}
	return store, cat, nil
}

// newLoader selects the inference backend. The returned stop func releases
// any spawned llama-server processes.
func newLoader(cfg config.Config, store *catalog.Store, log zerolog.Logger) (engine.Loader, func()) {
	switch cfg.Backend {
	case "llama":
		if !engine.LlamaBuilt() {
			log.Warn().Msg("llama backend selected but binary built without -tags=llama; loads will fail")
		}
		return engine.NewLlamaLoader(store, engine.LlamaOptions{
			CtxSize:   cfg.LlamaCtx,
			Threads:   cfg.LlamaThreads,
			GPULayers: cfg.LlamaGPULayers,
			Logger:    log,
		}), func() {}
	default:
		sl := engine.NewServerLoader(store, engine.ServerOptions{
			URL:       cfg.ServerURL,
			Bin:       cfg.LlamaBin,
			CtxSize:   cfg.LlamaCtx,
			Threads:   cfg.LlamaThreads,
			GPULayers: cfg.LlamaGPULayers,
			ExtraArgs: cfg.LlamaExtraArgs,
			Logger:    log,
		})
		return sl, sl.StopAll
	}
}

func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	store, cat, err := newCatalog(cfg)
	if err != nil {
		return nil, err
	}
	loader, stop := newLoader(cfg, store, log)
	events := evaluator.NewBroadcaster()
	ev, err := evaluator.New(evaluator.Config{
		Catalog:         cat,
		Loader:          loader,
		Publisher:       events,
		Logger:          log,
		DisplayCadence:  cfg.DisplayCadence,
		MaxTokens:       cfg.MaxTokens,
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		CacheLimitBytes: int64(cfg.CacheLimitMB) << 20,
	})
	if err != nil {
		stop()
		return nil, err
	}
	log.Info().
		Str("backend", cfg.Backend).
		Str("models_dir", store.Dir).
		Int("models", len(cat.List())).
		Str("selected", cat.Default().ID).
		Msg("evaluator ready")
	return &app{cfg: cfg, log: log, store: store, cat: cat, events: events, ev: ev, stop: stop}, nil
}

// Close unloads the model, stops spawned servers and ends event feeds.
func (a *app) Close() {
	if err := a.ev.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close evaluator")
	}
	a.stop()
	a.events.Close()
}
