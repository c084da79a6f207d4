package evaluator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"llmeval/internal/engine"
)

// Generate runs one generation for prompt against the selected model,
// loading it first if needed. While it runs, a second call returns
// ErrGenerationRunning immediately and leaves the output alone.
//
// The output is cleared on entry and refreshed every DisplayCadence tokens.
// Generation stops once MaxTokens tokens have been produced. Load or
// generation errors leave "Failed: <err>" in the output and are returned.
func (e *Evaluator) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (Session, error) {
	var o generateOptions
	for _, opt := range opts {
		opt(&o)
	}
	e.mu.Lock()
	if e.running {
		cur := e.session.ID
		e.mu.Unlock()
		generationsTotal.WithLabelValues("dropped").Inc()
		e.log.Debug().Str("event", EventGenerateDrop).Str("running", cur).Msg("generation already running")
		e.publish(Event{Name: EventGenerateDrop, Session: cur})
		return Session{}, ErrGenerationRunning
	}
	now := e.now()
	sess := Session{
		ID:        uuid.NewString(),
		Model:     e.selected.ID,
		Prompt:    prompt,
		Running:   true,
		Seed:      seedFrom(now.UnixNano()),
		StartedAt: now,
	}
	e.running = true
	e.session = sess
	e.stat = ""
	e.mu.Unlock()

	e.log.Info().Str("event", EventGenerateStart).Str("session", sess.ID).Str("model", sess.Model).Msg("generation started")
	e.publish(Event{Name: EventGenerateStart, ModelID: sess.Model, Session: sess.ID})
	e.emitOutput(sess, "", o)

	c, err := e.Load(ctx)
	if err != nil {
		return e.fail(sess, err, o)
	}

	params := e.params
	params.Seed = sess.Seed
	params.MaxTokens = e.maxTokens
	cadence, limit := e.cadence, e.maxTokens

	var res engine.Result
	err = c.Perform(ctx, func(ctx context.Context, mc engine.ModelContext) error {
		if mc.Processor == nil {
			mc.Processor = engine.TemplateProcessor{Template: mc.Configuration.Template}
		}
		if mc.Tokenizer == nil {
			mc.Tokenizer = engine.PieceTokenizer{}
		}
		in, err := mc.Processor.Prepare(prompt)
		if err != nil {
			return err
		}
		res, err = engine.Generate(ctx, mc, in, params, func(tokens []engine.Token) engine.Disposition {
			if len(tokens)%cadence == 0 {
				e.setOutput(sess, mc.Tokenizer.Decode(tokens), o)
			}
			if len(tokens) >= limit {
				return engine.Stop
			}
			return engine.Continue
		})
		return err
	})
	if err != nil {
		return e.fail(sess, err, o)
	}

	e.mu.Lock()
	corrected := e.session.Output != res.Output
	e.session.Output = res.Output
	e.session.Running = false
	e.session.Tokens = len(res.Tokens)
	e.session.TokensPerSecond = res.TokensPerSecond
	e.session.FinishedAt = e.now()
	e.stat = fmt.Sprintf("Tokens/second: %.3f", res.TokensPerSecond)
	e.running = false
	out, stat := e.session, e.stat
	e.mu.Unlock()

	if corrected {
		e.emitOutput(out, out.Output, o)
	}
	generationsTotal.WithLabelValues("ok").Inc()
	generatedTokens.Observe(float64(out.Tokens))
	tokensPerSecond.WithLabelValues(out.Model).Set(res.TokensPerSecond)
	e.log.Info().
		Str("event", EventGenerateDone).
		Str("session", out.ID).
		Int("tokens", out.Tokens).
		Float64("tokens_per_second", res.TokensPerSecond).
		Bool("stopped", res.Stopped).
		Msg("generation finished")
	e.publish(Event{Name: EventGenerateDone, ModelID: out.Model, Session: out.ID, Fields: map[string]any{
		"tokens":            out.Tokens,
		"tokens_per_second": res.TokensPerSecond,
		"stat":              stat,
	}})
	if engine.TrimCache(e.accel) {
		e.memory.Delete(memoryKey)
	}
	return out, nil
}

// GenerateOption customizes a single Generate call.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	onOutput func(text string)
}

// OnOutput registers fn to receive every output update of this call, in
// order, on the generating goroutine. It is not called for a dropped call.
func OnOutput(fn func(text string)) GenerateOption {
	return func(o *generateOptions) { o.onOutput = fn }
}

// setOutput replaces the output of sess if it is still the current session.
func (e *Evaluator) setOutput(sess Session, text string, o generateOptions) {
	e.mu.Lock()
	if e.session.ID != sess.ID {
		e.mu.Unlock()
		return
	}
	e.session.Output = text
	e.mu.Unlock()
	e.emitOutput(sess, text, o)
}

func (e *Evaluator) emitOutput(sess Session, text string, o generateOptions) {
	if o.onOutput != nil {
		o.onOutput(text)
	}
	e.publish(Event{Name: EventOutput, ModelID: sess.Model, Session: sess.ID, Fields: map[string]any{"output": text}})
}

func (e *Evaluator) fail(sess Session, err error, o generateOptions) (Session, error) {
	e.mu.Lock()
	e.session.Output = failedOutput(err)
	e.session.Err = err.Error()
	e.session.Running = false
	e.session.FinishedAt = e.now()
	e.running = false
	out := e.session
	e.mu.Unlock()

	generationsTotal.WithLabelValues("error").Inc()
	e.log.Error().Err(err).Str("event", EventGenerateFailed).Str("session", sess.ID).Str("model", sess.Model).Msg("generation failed")
	e.emitOutput(sess, out.Output, o)
	e.publish(Event{Name: EventGenerateFailed, ModelID: sess.Model, Session: sess.ID, Fields: map[string]any{"error": err.Error()}})
	return out, err
}

// seedFrom folds a timestamp into a non-negative 31-bit sampler seed.
func seedFrom(nanos int64) int {
	u := uint64(nanos)
	return int((u ^ u>>31) & 0x7fffffff)
}
