package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"llmeval/internal/common/fsutil"
)

// LoadDir scans a directory for *.gguf files and builds configurations from
// filenames. ID and Name are the full filename; Path is the absolute file path.
// A missing directory yields an empty result.
func LoadDir(dir string) ([]Configuration, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Configuration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		p := filepath.Join(abs, name)
		out = append(out, Configuration{
			ID:       name,
			Name:     name,
			Path:     p,
			Filename: name,
			Template: GuessTemplate(name),
			SizeMB:   int(fsutil.FileSize(p) / (1024 * 1024)),
		})
	}
	return out, nil
}
