// Package catalog describes the model configurations llmeval can load: a
// fixed set of named checkpoints plus any GGUF files found in the models dir.
package catalog

import (
	"fmt"
	"strings"
)

// Configuration names a checkpoint and everything needed to fetch and prompt it.
type Configuration struct {
	ID            string
	Name          string
	Family        string
	Quant         string
	Repo          string // Hugging Face repository, e.g. "Qwen/Qwen2.5-1.5B-Instruct-GGUF"
	Filename      string // file inside Repo
	Path          string // local file; set for directory-scanned models
	Template      Template
	DefaultPrompt string
	SizeMB        int
}

// Local reports whether the configuration points at a file on disk rather
// than a downloadable checkpoint.
func (c Configuration) Local() bool { return c.Path != "" }

// Builtin is the fixed catalog of checkpoints offered by the model picker.
var Builtin = []Configuration{
	{
		ID:            "qwen2.5-1.5b-instruct-q4",
		Name:          "Qwen 2.5 1.5B Instruct (Q4_K_M)",
		Family:        "qwen",
		Quant:         "Q4_K_M",
		Repo:          "Qwen/Qwen2.5-1.5B-Instruct-GGUF",
		Filename:      "qwen2.5-1.5b-instruct-q4_k_m.gguf",
		Template:      TemplateChatML,
		DefaultPrompt: "Why is the sky blue?",
		SizeMB:        1120,
	},
	{
		ID:            "llama-3.2-1b-instruct-q4",
		Name:          "Llama 3.2 1B Instruct (Q4_K_M)",
		Family:        "llama",
		Quant:         "Q4_K_M",
		Repo:          "bartowski/Llama-3.2-1B-Instruct-GGUF",
		Filename:      "Llama-3.2-1B-Instruct-Q4_K_M.gguf",
		Template:      TemplateLlama3,
		DefaultPrompt: "What is the difference between a fruit and a vegetable?",
		SizeMB:        808,
	},
	{
		ID:            "phi-3.5-mini-instruct-q4",
		Name:          "Phi 3.5 Mini Instruct (Q4_K_M)",
		Family:        "phi",
		Quant:         "Q4_K_M",
		Repo:          "bartowski/Phi-3.5-mini-instruct-GGUF",
		Filename:      "Phi-3.5-mini-instruct-Q4_K_M.gguf",
		Template:      TemplatePhi3,
		DefaultPrompt: "What is the gravity on Mars and the moon?",
		SizeMB:        2390,
	},
	{
		ID:            "gemma-2-2b-it-q4",
		Name:          "Gemma 2 2B IT (Q4_K_M)",
		Family:        "gemma",
		Quant:         "Q4_K_M",
		Repo:          "bartowski/gemma-2-2b-it-GGUF",
		Filename:      "gemma-2-2b-it-Q4_K_M.gguf",
		Template:      TemplateGemma,
		DefaultPrompt: "What is the difference between lettuce and cabbage?",
		SizeMB:        1710,
	},
}

type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error for an id that is not in the catalog.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether err indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// Catalog is an immutable, ordered set of configurations.
type Catalog struct {
	items []Configuration
	index map[string]int
	def   string
}

// New builds a catalog from the given configurations. Later entries with a
// duplicate ID or a duplicate checkpoint filename are dropped, so a
// downloaded builtin checkpoint found again by LoadDir is listed once.
// defaultID selects the initial model; when empty the first entry is used.
func New(defaultID string, groups ...[]Configuration) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int)}
	files := make(map[string]bool)
	for _, g := range groups {
		for _, cfg := range g {
			id := strings.TrimSpace(cfg.ID)
			if id == "" {
				continue
			}
			if _, dup := c.index[id]; dup {
				continue
			}
			if f := strings.ToLower(cfg.Filename); f != "" {
				if files[f] {
					continue
				}
				files[f] = true
			}
			c.index[id] = len(c.items)
			c.items = append(c.items, cfg)
		}
	}
	if len(c.items) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	c.def = c.items[0].ID
	if defaultID != "" {
		if _, ok := c.index[defaultID]; !ok {
			return nil, ErrModelNotFound(defaultID)
		}
		c.def = defaultID
	}
	return c, nil
}

// List returns a copy of all configurations in catalog order.
func (c *Catalog) List() []Configuration {
	out := make([]Configuration, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup finds a configuration by id.
func (c *Catalog) Lookup(id string) (Configuration, error) {
	i, ok := c.index[id]
	if !ok {
		return Configuration{}, ErrModelNotFound(id)
	}
	return c.items[i], nil
}

// Default returns the configuration selected at startup.
func (c *Catalog) Default() Configuration {
	return c.items[c.index[c.def]]
}
