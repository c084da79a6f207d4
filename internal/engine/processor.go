package engine

import (
	"errors"
	"strings"

	"llmeval/internal/catalog"
)

// PieceTokenizer decodes by concatenating token pieces. Backends that stream
// text fragments (llama token callbacks, llama-server SSE) use it.
type PieceTokenizer struct{}

func (PieceTokenizer) Decode(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Piece)
	}
	return sb.String()
}

// TemplateProcessor applies a catalog chat template to the prompt.
type TemplateProcessor struct {
	Template catalog.Template
}

func (p TemplateProcessor) Prepare(prompt string) (Input, error) {
	if strings.TrimSpace(prompt) == "" {
		return Input{}, errors.New("prompt is empty")
	}
	return Input{
		Prompt: prompt,
		Text:   p.Template.Format(prompt),
		Stop:   p.Template.StopWords(),
	}, nil
}
