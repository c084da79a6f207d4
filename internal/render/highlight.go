package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// labelFences adds a language to code fences that lack one, detected from
// the fence body, so the markdown renderer can highlight them. Fences whose
// language cannot be detected are left alone.
func labelFences(text string) string {
	lines := strings.Split(text, "\n")
	open := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		if strings.TrimSpace(lines[open]) == "```" {
			if lang := detectLanguage(strings.Join(lines[open+1:i], "\n")); lang != "" {
				lines[open] = strings.Replace(lines[open], "```", "```"+lang, 1)
			}
		}
		open = -1
	}
	return strings.Join(lines, "\n")
}

// detectLanguage returns the chroma alias of the lexer that best matches
// code, or "" when none claims it.
func detectLanguage(code string) string {
	lexer := lexers.Analyse(code)
	if lexer == nil {
		return ""
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}
