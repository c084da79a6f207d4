package evaluator

import (
	"time"

	"llmeval/internal/catalog"
)

// LoadPhase is the load state of the selected model.
type LoadPhase string

const (
	PhaseIdle    LoadPhase = "idle"
	PhaseLoading LoadPhase = "loading"
	PhaseLoaded  LoadPhase = "loaded"
)

// Session is the record of one generate call. It is replaced by the next call.
type Session struct {
	ID              string
	Model           string
	Prompt          string
	Output          string
	Running         bool
	Tokens          int
	TokensPerSecond float64
	Seed            int
	Err             string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Snapshot is a read-only projection of the evaluator state.
type Snapshot struct {
	Model     catalog.Configuration
	Phase     LoadPhase
	ModelInfo string
	Running   bool
	Session   Session
	Stat      string
}
