package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultAddr           = ":8080"
	DefaultModelsDir      = "~/models/llm"
	DefaultLogLevel       = "info"
	DefaultStyle          = "plain"
	DefaultBackend        = "server"
	DefaultLlamaCtx       = 4096
	DefaultDisplayCadence = 4
	DefaultMaxTokens      = 4000
	DefaultTemperature    = 0.6
	DefaultCacheLimitMB   = 20
	DefaultDownloadURL    = "https://huggingface.co"
	DefaultMaxBodyBytes   = 1 << 20
)

// WithDefaults returns a copy of c with every unset field populated.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Style == "" {
		c.Style = DefaultStyle
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.LlamaCtx <= 0 {
		c.LlamaCtx = DefaultLlamaCtx
	}
	if c.DisplayCadence <= 0 {
		c.DisplayCadence = DefaultDisplayCadence
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.CacheLimitMB <= 0 {
		c.CacheLimitMB = DefaultCacheLimitMB
	}
	if c.DownloadURL == "" {
		c.DownloadURL = DefaultDownloadURL
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// FromEnv overlays LLMEVAL_* environment variables onto c. Unset or
// malformed variables leave the field untouched.
func (c Config) FromEnv() Config {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	str("LLMEVAL_ADDR", &c.Addr)
	str("LLMEVAL_MODELS_DIR", &c.ModelsDir)
	str("LLMEVAL_DEFAULT_MODEL", &c.DefaultModel)
	str("LLMEVAL_LOG_LEVEL", &c.LogLevel)
	str("LLMEVAL_BACKEND", &c.Backend)
	str("LLMEVAL_SERVER_URL", &c.ServerURL)
	str("LLMEVAL_LLAMA_BIN", &c.LlamaBin)
	num("LLMEVAL_MAX_TOKENS", &c.MaxTokens)
	num("LLMEVAL_DISPLAY_CADENCE", &c.DisplayCadence)
	return c
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Backend {
	case "server", "llama":
	default:
		return fmt.Errorf("unknown backend %q (want server or llama)", c.Backend)
	}
	if c.Backend == "server" && c.ServerURL != "" && c.LlamaBin != "" {
		return fmt.Errorf("server_url and llama_bin are mutually exclusive")
	}
	if c.DisplayCadence <= 0 || c.MaxTokens <= 0 {
		return fmt.Errorf("display_cadence and max_tokens must be positive")
	}
	if (c.Temperature != nil && *c.Temperature < 0) || c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("temperature must be >= 0 and top_p within [0,1]")
	}
	return nil
}
