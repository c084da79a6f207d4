package httpapi

import (
	"context"
	"net/http"
)

// shutdownCtx is cancelled when the server begins shutting down.
var shutdownCtx = context.Background()

// SetBaseContext installs the shutdown context. nil restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx = ctx
}

// shuttingDown reports whether the shutdown context has ended.
func shuttingDown() bool { return shutdownCtx.Err() != nil }

// workContext derives the context for evaluator work started by a request.
// It keeps the request's values but ends only when the server shuts down: a
// client that disconnects must not abort a generation or a shared load that
// other observers are watching. Call stop when done.
func workContext(r *http.Request) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	unhook := context.AfterFunc(shutdownCtx, cancel)
	return ctx, func() {
		unhook()
		cancel()
	}
}
