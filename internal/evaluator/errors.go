package evaluator

import (
	"errors"

	"llmeval/internal/catalog"
)

var (
	// ErrGenerationRunning is returned when Generate or Select is called
	// while a generation is in progress. Nothing is changed.
	ErrGenerationRunning = errors.New("generation already running")
	// ErrSelectionChanged is returned by a Load whose selection was
	// replaced before the model finished loading.
	ErrSelectionChanged = errors.New("model selection changed during load")
)

// IsModelNotFound reports whether err indicates an unknown model id.
func IsModelNotFound(err error) bool { return catalog.IsModelNotFound(err) }

// IsBusy reports whether err means a generation was already running.
func IsBusy(err error) bool { return errors.Is(err, ErrGenerationRunning) }

// failedOutput is what the output field shows after a failure.
func failedOutput(err error) string { return "Failed: " + err.Error() }
