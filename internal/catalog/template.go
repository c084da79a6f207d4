package catalog

import "strings"

// Template identifies the chat format a checkpoint expects.
type Template string

const (
	TemplatePlain  Template = "plain"
	TemplateChatML Template = "chatml" // Qwen, SmolLM
	TemplateLlama3 Template = "llama3"
	TemplatePhi3   Template = "phi3"
	TemplateGemma  Template = "gemma"
)

// StopWords returns the end-of-turn markers for the template.
func (t Template) StopWords() []string {
	switch t {
	case TemplateChatML:
		return []string{"<|im_end|>"}
	case TemplateLlama3:
		return []string{"<|eot_id|>"}
	case TemplatePhi3:
		return []string{"<|end|>"}
	case TemplateGemma:
		return []string{"<end_of_turn>"}
	default:
		return nil
	}
}

// Format wraps a single user prompt in the template and opens the assistant turn.
func (t Template) Format(prompt string) string {
	var sb strings.Builder
	switch t {
	case TemplateChatML:
		sb.WriteString("<|im_start|>user\n")
		sb.WriteString(prompt)
		sb.WriteString("<|im_end|>\n<|im_start|>assistant\n")
	case TemplateLlama3:
		sb.WriteString("<|begin_of_text|><|start_header_id|>user<|end_header_id|>\n\n")
		sb.WriteString(prompt)
		sb.WriteString("<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n")
	case TemplatePhi3:
		sb.WriteString("<|user|>\n")
		sb.WriteString(prompt)
		sb.WriteString("<|end|>\n<|assistant|>\n")
	case TemplateGemma:
		sb.WriteString("<start_of_turn>user\n")
		sb.WriteString(prompt)
		sb.WriteString("<end_of_turn>\n<start_of_turn>model\n")
	default:
		sb.WriteString(prompt)
	}
	return sb.String()
}

// GuessTemplate picks a template from a checkpoint filename.
func GuessTemplate(name string) Template {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "qwen"), strings.Contains(n, "smollm"), strings.Contains(n, "chatml"):
		return TemplateChatML
	case strings.Contains(n, "llama-3"), strings.Contains(n, "llama3"):
		return TemplateLlama3
	case strings.Contains(n, "phi-3"), strings.Contains(n, "phi3"):
		return TemplatePhi3
	case strings.Contains(n, "gemma"):
		return TemplateGemma
	default:
		return TemplatePlain
	}
}
