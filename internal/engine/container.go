package engine

import (
	"context"
	"errors"
	"sync"

	"llmeval/internal/catalog"
)

// ErrContainerClosed is returned by Perform after Close.
var ErrContainerClosed = errors.New("model container closed")

// Container owns a loaded model. Perform calls are serialized; Close waits
// for a running Perform to return before releasing the model.
type Container struct {
	mu     sync.Mutex
	mc     ModelContext
	closer func() error
	closed bool
}

// NewContainer wraps a model context. closer, when non-nil, releases the
// native resources backing the model.
func NewContainer(mc ModelContext, closer func() error) *Container {
	return &Container{mc: mc, closer: closer}
}

// Configuration returns the configuration the container was loaded for.
func (c *Container) Configuration() catalog.Configuration { return c.mc.Configuration }

// WeightsBytes is the on-disk size of the loaded weights, 0 when unknown.
func (c *Container) WeightsBytes() int64 { return c.mc.WeightsBytes }

// Perform runs fn with exclusive access to the model context.
func (c *Container) Perform(ctx context.Context, fn func(context.Context, ModelContext) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContainerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, c.mc)
}

// Close releases the model. It is safe to call more than once.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer()
	}
	return nil
}
