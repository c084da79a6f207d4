package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"llmeval/internal/config"
)

// addConfigFlags registers the persistent flags shared by every subcommand.
// Defaults are left zero so an unset flag never masks the file or env value.
func addConfigFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("config", os.Getenv("LLMEVAL_CONFIG"), "Path to config file (.yaml|.yml|.json|.toml)")
	fs.String("log-level", "", "Log level: debug|info|warn|error")
	fs.String("models-dir", "", "Directory for downloaded and local *.gguf checkpoints (default ~/models/llm)")
	fs.String("default-model", "", "Model selected at startup")
	fs.String("backend", "", "Inference backend: server|llama")
	fs.String("server-url", "", "Use a running llama-server at this URL")
	fs.String("llama-bin", "", "Path to llama-server; spawned per loaded model")
	fs.StringSlice("llama-args", nil, "Extra arguments for spawned llama-server")
	fs.Int("llama-ctx", 0, "Context size in tokens")
	fs.Int("llama-threads", 0, "Inference threads (0 = backend default)")
	fs.Int("gpu-layers", 0, "Layers to offload to the GPU")
	fs.String("download-url", "", "Base URL of the model hub")
	fs.Int("max-tokens", 0, "Stop generating after this many tokens (default 4000)")
	fs.Int("display-cadence", 0, "Refresh the output every N tokens (default 4)")
	fs.Float64("temperature", 0, "Sampling temperature (default 0.6)")
	fs.Float64("top-p", 0, "Nucleus sampling probability")
	fs.Int("cache-limit-mb", 0, "Accelerator cache limit in MiB (default 20)")
	fs.String("style", "", "Display style: plain|markdown")
}

// resolveConfig layers config file, LLMEVAL_* env and explicitly set flags,
// then fills defaults and validates.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	fs := cmd.Flags()
	var cfg config.Config
	if path, _ := fs.GetString("config"); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	cfg = cfg.FromEnv()
	if v := os.Getenv("LLMEVAL_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
		cfg.CORSEnabled = true
	}

	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			*dst, _ = fs.GetInt(name)
		}
	}
	flt := func(name string, dst *float64) {
		if fs.Changed(name) {
			*dst, _ = fs.GetFloat64(name)
		}
	}
	str("log-level", &cfg.LogLevel)
	str("models-dir", &cfg.ModelsDir)
	str("default-model", &cfg.DefaultModel)
	str("backend", &cfg.Backend)
	str("server-url", &cfg.ServerURL)
	str("llama-bin", &cfg.LlamaBin)
	str("download-url", &cfg.DownloadURL)
	str("style", &cfg.Style)
	num("llama-ctx", &cfg.LlamaCtx)
	num("llama-threads", &cfg.LlamaThreads)
	num("gpu-layers", &cfg.LlamaGPULayers)
	num("max-tokens", &cfg.MaxTokens)
	num("display-cadence", &cfg.DisplayCadence)
	num("cache-limit-mb", &cfg.CacheLimitMB)
	if fs.Changed("temperature") {
		t, _ := fs.GetFloat64("temperature")
		cfg.Temperature = &t
	}
	flt("top-p", &cfg.TopP)
	if fs.Changed("llama-args") {
		cfg.LlamaExtraArgs, _ = fs.GetStringSlice("llama-args")
	}
	// serve-only flags
	if f := fs.Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if f := fs.Lookup("max-body-bytes"); f != nil && f.Changed {
		cfg.MaxBodyBytes, _ = fs.GetInt64("max-body-bytes")
	}
	if f := fs.Lookup("cors-origins"); f != nil && f.Changed {
		cfg.CORSOrigins, _ = fs.GetStringSlice("cors-origins")
		cfg.CORSEnabled = true
	}
	if f := fs.Lookup("cors"); f != nil && f.Changed {
		cfg.CORSEnabled, _ = fs.GetBool("cors")
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
