//go:build llama

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
	"llmeval/internal/common/fsutil"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// LlamaOptions configure the in-process llama backend.
type LlamaOptions struct {
	CtxSize   int
	Threads   int
	GPULayers int
	Logger    zerolog.Logger
}

type llamaLoader struct {
	store *catalog.Store
	opts  LlamaOptions
}

// NewLlamaLoader returns a Loader that fetches checkpoints through store and
// loads them with go-llama.cpp.
func NewLlamaLoader(store *catalog.Store, opts LlamaOptions) Loader {
	return &llamaLoader{store: store, opts: opts}
}

func (l *llamaLoader) Load(ctx context.Context, cfg catalog.Configuration, progress ProgressFunc) (*Container, error) {
	report := func(f float64) {
		if progress != nil {
			progress(f)
		}
	}
	path, err := l.store.Ensure(ctx, cfg, func(p catalog.Progress) { report(p.Fraction() * 0.95) })
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{llama.SetContext(l.opts.CtxSize)}
	if l.opts.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(l.opts.GPULayers))
	}
	l.opts.Logger.Info().Str("event", "llama_load").Str("model", cfg.ID).Str("path", path).Msg("loading weights")
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, fmt.Errorf("llama load %s: %w", cfg.ID, err)
	}
	report(1)
	mc := ModelContext{
		Configuration: cfg,
		Model:         &llamaModel{model: m, threads: l.opts.Threads},
		Tokenizer:     PieceTokenizer{},
		Processor:     TemplateProcessor{Template: cfg.Template},
		WeightsBytes:  fsutil.FileSize(path),
	}
	return NewContainer(mc, func() error {
		m.Free()
		return nil
	}), nil
}

// llamaModel owns the loaded model.
type llamaModel struct {
	model   *llama.LLama
	threads int
}

func (s *llamaModel) Stream(ctx context.Context, in Input, p GenerateParameters, emit func(Token) bool) error {
	if s.model == nil {
		return errors.New("llama model not initialized")
	}
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		return emit(Token{Piece: tok})
	})
	_, err := s.model.Predict(in.Text, predictOptions(p, in.Stop, s.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts generation parameters into go-llama.cpp options.
func predictOptions(p GenerateParameters, stop []string, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(zn(p.MaxTokens, llama.DefaultOptions.Tokens)),
		llama.SetThreads(zn(threads, llama.DefaultOptions.Threads)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(p.Temperature),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(stop) > 0 {
		po = append(po, llama.SetStopWords(stop...))
	}
	return po
}
