//go:build !llama

package engine

// This file is compiled when the 'llama' build tag is NOT set, keeping
// default builds CGO-free. The real backend lives in llama.go.

import (
	"context"

	"github.com/rs/zerolog"

	"llmeval/internal/catalog"
)

const llamaBuilt = false

// LlamaOptions configure the in-process llama backend.
type LlamaOptions struct {
	CtxSize   int
	Threads   int
	GPULayers int
	Logger    zerolog.Logger
}

type llamaLoader struct{}

// NewLlamaLoader returns a Loader that refuses to load without llama support.
func NewLlamaLoader(store *catalog.Store, opts LlamaOptions) Loader {
	return llamaLoader{}
}

func (llamaLoader) Load(ctx context.Context, cfg catalog.Configuration, progress ProgressFunc) (*Container, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
