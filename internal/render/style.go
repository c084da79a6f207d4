// Package render turns generated output into terminal text for a display style.
package render

import (
	"fmt"
	"strings"
)

// Style selects how output is displayed. It never alters the output itself.
type Style string

const (
	Plain    Style = "plain"
	Markdown Style = "markdown"
)

// Styles lists the selectable styles in picker order.
var Styles = []Style{Plain, Markdown}

// ParseStyle accepts "plain", "markdown" or "md", case-insensitively.
// An empty string yields Plain.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain", "text":
		return Plain, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("unknown display style %q (want plain or markdown)", s)
}

func (s Style) String() string { return string(s) }

// Render formats text for the terminal. width <= 0 disables wrapping.
func Render(text string, s Style, width int) string {
	if s == Markdown {
		return renderMarkdown(text, width)
	}
	return text
}
