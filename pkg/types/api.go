package types

// ModelInfo describes one selectable model configuration.
type ModelInfo struct {
	// Catalog identifier.
	// example: qwen2.5-1.5b-instruct-q4
	ID string `json:"id" example:"qwen2.5-1.5b-instruct-q4"`
	// Display name.
	Name string `json:"name,omitempty"`
	// Model family, e.g. qwen, llama.
	Family string `json:"family,omitempty"`
	// Quantization label.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Chat template used to wrap prompts.
	// example: chatml
	Template string `json:"template,omitempty" example:"chatml"`
	// Approximate checkpoint size in MiB.
	SizeMB int `json:"size_mb,omitempty"`
	// True when the checkpoint is a local file rather than a download.
	Local bool `json:"local"`
	// Prompt suggested for this model.
	DefaultPrompt string `json:"default_prompt,omitempty"`
	// True for the currently selected model.
	Selected bool `json:"selected"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []ModelInfo `json:"models"`
	// ID of the selected model.
	Selected string `json:"selected"`
}

// SelectRequest is the body of POST /select.
type SelectRequest struct {
	// example: llama-3.2-1b-instruct-q4
	Model string `json:"model" example:"llama-3.2-1b-instruct-q4"`
}

// LoadResponse is returned by POST /select and POST /load.
type LoadResponse struct {
	Model string `json:"model"`
	// Load phase: idle, loading or loaded.
	// example: loaded
	Phase string `json:"phase" example:"loaded"`
	// example: Loaded qwen2.5-1.5b-instruct-q4. Weights: 940M
	ModelInfo string `json:"model_info,omitempty" example:"Loaded qwen2.5-1.5b-instruct-q4. Weights: 940M"`
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	// Prompt text. When empty the selected model's default prompt is used.
	// example: Why is the sky blue?
	Prompt string `json:"prompt" example:"Why is the sky blue?"`
}

// GenerateLine is one NDJSON line streamed by POST /generate. Every line
// carries the full output so far; the last line has Done set.
type GenerateLine struct {
	Session         string  `json:"session,omitempty"`
	Output          string  `json:"output"`
	Done            bool    `json:"done,omitempty"`
	Tokens          int     `json:"tokens,omitempty"`
	TokensPerSecond float64 `json:"tokens_per_second,omitempty"`
	// example: Tokens/second: 41.237
	Stat  string `json:"stat,omitempty" example:"Tokens/second: 41.237"`
	Error string `json:"error,omitempty"`
}

// OutputResponse is returned by GET /output.
type OutputResponse struct {
	Session string `json:"session,omitempty"`
	Output  string `json:"output"`
	// Output formatted for the requested display style.
	Rendered string `json:"rendered"`
	// example: markdown
	Style   string `json:"style" example:"markdown"`
	Running bool   `json:"running"`
}

// MemoryInfo reports accelerator memory in bytes.
type MemoryInfo struct {
	Active     int64 `json:"active_bytes"`
	Cache      int64 `json:"cache_bytes"`
	Peak       int64 `json:"peak_bytes"`
	CacheLimit int64 `json:"cache_limit_bytes"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Model     string     `json:"model"`
	Phase     string     `json:"phase"`
	ModelInfo string     `json:"model_info,omitempty"`
	Running   bool       `json:"running"`
	Session   string     `json:"session,omitempty"`
	Stat      string     `json:"stat,omitempty"`
	Memory    MemoryInfo `json:"memory"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
