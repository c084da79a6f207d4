package engine

import (
	"context"
	"strings"
	"time"

	"llmeval/internal/catalog"
)

// Token is one generated unit. Backends that stream text fragments leave ID zero.
type Token struct {
	ID    int32
	Piece string
}

// Disposition is the answer of a generation callback.
type Disposition int

const (
	Continue Disposition = iota
	Stop
)

// GenerateParameters are the sampling controls passed to the decode loop.
type GenerateParameters struct {
	Temperature   float32
	TopP          float32
	TopK          int
	RepeatPenalty float32
	MaxTokens     int
	Seed          int
}

// Input is a prompt prepared for a specific model.
type Input struct {
	Prompt string   // user text as typed
	Text   string   // text fed to the model, template applied
	Stop   []string // end-of-turn markers
}

// InputProcessor turns user text into model input.
type InputProcessor interface {
	Prepare(prompt string) (Input, error)
}

// Tokenizer decodes a token buffer back to text.
type Tokenizer interface {
	Decode(tokens []Token) string
}

// Model is the raw streaming primitive of a backend. emit returns false to
// stop generation early; Stream then returns nil.
type Model interface {
	Stream(ctx context.Context, in Input, p GenerateParameters, emit func(Token) bool) error
}

// ModelContext bundles everything needed to run one generation.
type ModelContext struct {
	Configuration catalog.Configuration
	Model         Model
	Tokenizer     Tokenizer
	Processor     InputProcessor
	WeightsBytes  int64
}

// ProgressFunc receives load progress as a fraction in [0,1].
type ProgressFunc func(fraction float64)

// Loader fetches and initializes a model container for a configuration.
type Loader interface {
	Load(ctx context.Context, cfg catalog.Configuration, progress ProgressFunc) (*Container, error)
}

// Result summarizes a finished generation.
type Result struct {
	Output          string
	Tokens          []Token
	PromptTime      time.Duration
	GenerateTime    time.Duration
	TokensPerSecond float64
	Stopped         bool // the callback asked to stop
}

// Summary renders the timing line shown after a generation.
func (r Result) Summary() string {
	var sb strings.Builder
	sb.WriteString("Prompt: ")
	sb.WriteString(r.PromptTime.Round(time.Millisecond).String())
	sb.WriteString(", Generation: ")
	sb.WriteString(r.GenerateTime.Round(time.Millisecond).String())
	return sb.String()
}
