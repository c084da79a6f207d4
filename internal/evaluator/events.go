package evaluator

// Event names published by the evaluator.
const (
	EventModelSelected  = "model_selected"
	EventLoadStart      = "load_start"
	EventLoadProgress   = "load_progress"
	EventLoadReady      = "load_ready"
	EventLoadError      = "load_error"
	EventGenerateStart  = "generate_start"
	EventGenerateDrop   = "generate_dropped"
	EventOutput         = "output"
	EventGenerateDone   = "generate_done"
	EventGenerateFailed = "generate_error"
)

// Event represents an evaluator lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string         `json:"event"`
	ModelID string         `json:"model,omitempty"`
	Session string         `json:"session,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// EventPublisher receives events from the evaluator. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

type multiPublisher []EventPublisher

func (m multiPublisher) Publish(e Event) {
	for _, p := range m {
		p.Publish(e)
	}
}

// Publishers fans events out to every non-nil publisher in order.
func Publishers(ps ...EventPublisher) EventPublisher {
	out := make(multiPublisher, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return noopPublisher{}
	case 1:
		return out[0]
	}
	return out
}
