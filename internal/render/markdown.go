package render

import (
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes ANSI color codes from text.
func StripANSI(text string) string {
	return ansiRegex.ReplaceAllString(text, "")
}

// renderers holds one glamour renderer per wrap width. A TermRenderer is
// not safe for concurrent Render calls, hence the lock around use.
var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

func markdownRenderer(width int) (*glamour.TermRenderer, error) {
	if width < 0 {
		width = 0
	}
	if r, ok := renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourstyles.DarkStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	renderers[width] = r
	return r, nil
}

// renderMarkdown renders text with glamour; width 0 disables wrapping.
// On renderer failure the text is returned unchanged.
func renderMarkdown(text string, width int) string {
	renderersMu.Lock()
	defer renderersMu.Unlock()
	r, err := markdownRenderer(width)
	if err != nil {
		return text
	}
	out, err := r.Render(labelFences(text))
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
