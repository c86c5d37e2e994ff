package engine

import (
	"strings"

	"xlorad/pkg/types"
)

// Template names a prompt format family.
type Template string

const (
	// TemplateZephyr is the <|role|> format used by Zephyr chat models.
	TemplateZephyr Template = "zephyr"
	// TemplateChatML is the <|im_start|> format used by ChatML models.
	TemplateChatML Template = "chatml"
	// TemplatePlain is a minimal "role: content" concatenation.
	TemplatePlain Template = "plain"
)

// TemplateForFamily maps a model family to its prompt template. Unknown
// families render plain.
func TemplateForFamily(family string) Template {
	switch strings.ToLower(family) {
	case "zephyr", "stablelm-zephyr":
		return TemplateZephyr
	case "chatml", "qwen", "yi":
		return TemplateChatML
	default:
		return TemplatePlain
	}
}

// ValidRole reports whether role is one a request may carry.
func ValidRole(role string) bool {
	switch role {
	case "system", "user", "assistant":
		return true
	}
	return false
}

// RenderPrompt flattens a conversation into a model prompt, preserving
// message order, and ends with the assistant turn opener so the model
// continues as the assistant. Rendering is deterministic.
func RenderPrompt(t Template, msgs []types.ChatMessage) (string, error) {
	if len(msgs) == 0 {
		return "", invalidf("engine: cannot render an empty conversation")
	}
	var b strings.Builder
	switch t {
	case TemplateZephyr:
		for _, m := range msgs {
			b.WriteString("<|")
			b.WriteString(m.Role)
			b.WriteString("|>\n")
			b.WriteString(m.Content)
			b.WriteString("</s>\n")
		}
		b.WriteString("<|assistant|>\n")
	case TemplateChatML:
		for _, m := range msgs {
			b.WriteString("<|im_start|>")
			b.WriteString(m.Role)
			b.WriteString("\n")
			b.WriteString(m.Content)
			b.WriteString("<|im_end|>\n")
		}
		b.WriteString("<|im_start|>assistant\n")
	default:
		for _, m := range msgs {
			b.WriteString(m.Role)
			b.WriteString(": ")
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
		b.WriteString("assistant:")
	}
	return b.String(), nil
}
