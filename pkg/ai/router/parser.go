package router

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"ai-screenwriting-be/pkg/store"
)

// Prefixes switch the mode for a single send. Longer prefixes that share a
// stem with a shorter one must be listed first.
var prefixes = []struct {
	prefix string
	mode   store.AgentMode
}{
	{"/visualize", store.ModeSceneVisualizer},
	{"/director", store.ModeDirector},
	{"/dialogue", store.ModeDialogue},
	{"/image", store.ModeImage},
	{"/video", store.ModeQuickVideo},
	{"/chat", store.ModeChat},
}

// ParsedPrompt contains routing information extracted from prompt
type ParsedPrompt struct {
	OriginalPrompt string          // Full original prompt
	CleanPrompt    string          // Prompt without prefix
	Mode           store.AgentMode // Mode named by the prefix, empty when there is none
}

// Parse extracts a leading mode prefix from prompt.
//   - /director <prompt> → director for this send
//   - /visualize <prompt> → scene visualizer for this send
//   - <prompt> → no override; the active mode handles it
func Parse(prompt string) *ParsedPrompt {
	trimmed := strings.TrimSpace(prompt)

	for _, p := range prefixes {
		if len(trimmed) < len(p.prefix) || !strings.EqualFold(trimmed[:len(p.prefix)], p.prefix) {
			continue
		}
		rest := trimmed[len(p.prefix):]
		if r, _ := utf8.DecodeRuneInString(rest); rest != "" && !unicode.IsSpace(r) {
			// "/imagery" is not "/image"
			continue
		}
		return &ParsedPrompt{
			OriginalPrompt: prompt,
			CleanPrompt:    strings.TrimSpace(rest),
			Mode:           p.mode,
		}
	}

	return &ParsedPrompt{
		OriginalPrompt: prompt,
		CleanPrompt:    trimmed,
	}
}

// HasPrefix reports whether the prompt named a mode.
func (p *ParsedPrompt) HasPrefix() bool {
	return p.Mode != ""
}

// IsEmpty returns true if the clean prompt is empty
func (p *ParsedPrompt) IsEmpty() bool {
	return strings.TrimSpace(p.CleanPrompt) == ""
}

// HelpMessage explains a prefix that was sent without a prompt.
func HelpMessage(mode store.AgentMode) string {
	switch mode {
	case store.ModeDirector:
		return "Director mode writes new scene material in Fountain.\n\nExample: /director The heist crew argues in the van"
	case store.ModeImage:
		return "Image mode renders a still from your description and the current scene.\n\nExample: /image Maya on the rooftop, neon rain"
	case store.ModeQuickVideo:
		return "Quick video renders a short clip.\n\nExample: /video Slow push in on the empty office"
	case store.ModeSceneVisualizer:
		return "Scene visualizer draws a storyboard of the current scene.\n\nExample: /visualize Focus on the chase"
	case store.ModeDialogue:
		return "Dialogue mode writes lines for the characters in the scene.\n\nExample: /dialogue Tom apologizes badly"
	default:
		return "Type your question after /chat, or just type it."
	}
}
