// Package prompt assembles the messages sent to text generation collaborators:
// a mode-specific system prompt, the injected editor context and the transcript,
// trimmed to a token budget.
package prompt

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"ai-screenwriting-be/pkg/llm"
	"ai-screenwriting-be/pkg/store"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens the way the target model would.
type TokenCounter interface {
	Count(text string) (int, error)
}

// Input is everything a panel knows when it needs a prompt.
type Input struct {
	Mode           store.AgentMode
	Prompt         string
	State          store.State
	EditorContent  string
	CursorPosition int
}

const (
	excerptRadius = 1500
	minExcerpt    = 200
)

var systemPrompts = map[store.AgentMode]string{
	store.ModeChat:            "You are a screenwriting partner. Answer questions about the user's screenplay and help them improve it. When asked to rewrite, return only the rewritten text in Fountain format.",
	store.ModeDirector:        "You are a director breaking a screenplay into playable scenes. Write new scene material in Fountain format: scene headings, action lines and dialogue. Return only the scene.",
	store.ModeDialogue:        "You write dialogue for the characters present in the current scene. Keep each voice distinct. Return only dialogue blocks in Fountain format (CHARACTER name line, then the line).",
	store.ModeImage:           "Describe a single cinematic still for an image model: subject, composition, lighting, lens and mood in one paragraph.",
	store.ModeQuickVideo:      "Describe a short cinematic shot for a video model: camera movement, subject action, setting and mood in one paragraph.",
	store.ModeSceneVisualizer: "Break the current scene into storyboard frames. Describe each frame on its own line, starting with 'FRAME:'.",
}

type Builder struct {
	counter TokenCounter
	budget  int
}

// NewBuilder counts tokens with the GPT-4 encoding, which is close enough for budgeting other models.
func NewBuilder(budget int) (*Builder, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return NewBuilderWithCounter(codec, budget), nil
}

func NewBuilderWithCounter(counter TokenCounter, budget int) *Builder {
	if budget <= 0 {
		budget = 6000
	}
	return &Builder{counter: counter, budget: budget}
}

// Build returns the chat history for one request. The editor excerpt is the
// first thing shrunk and the oldest transcript turns are the next thing dropped
// when the request does not fit the budget.
func (b *Builder) Build(in Input) []llm.Message {
	system := systemPrompts[in.Mode]
	if system == "" {
		system = systemPrompts[store.ModeChat]
	}

	radius := excerptRadius
	contextBlock := b.contextBlock(in, Excerpt(in.EditorContent, in.CursorPosition, radius))
	for b.count(system)+b.count(contextBlock)+b.count(in.Prompt) > b.budget && radius > minExcerpt {
		radius /= 2
		contextBlock = b.contextBlock(in, Excerpt(in.EditorContent, in.CursorPosition, radius))
	}

	history := transcript(in.State.Messages, in.Prompt)
	used := b.count(system) + b.count(contextBlock) + b.count(in.Prompt)
	start := len(history)
	for start > 0 {
		cost := b.count(history[start-1].Content)
		if used+cost > b.budget {
			break
		}
		used += cost
		start--
	}
	history = history[start:]

	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	if contextBlock != "" {
		messages = append(messages, llm.Message{Role: "system", Content: contextBlock})
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: in.Prompt})
	return messages
}

// Describe builds a single-paragraph prompt for media generators that take no transcript.
func (b *Builder) Describe(in Input) string {
	var sb strings.Builder
	sb.WriteString(in.Prompt)
	s := in.State
	if s.EntityContextBanner != nil {
		fmt.Fprintf(&sb, "\nSubject: a %s", s.EntityContextBanner.Type)
		for _, k := range sortedKeys(s.EntityContextBanner.Seed) {
			fmt.Fprintf(&sb, ", %s: %s", k, s.EntityContextBanner.Seed[k])
		}
	}
	if s.SceneContext != nil {
		fmt.Fprintf(&sb, "\nScene: %s", s.SceneContext.Heading)
		if s.SceneContext.Beat != "" {
			fmt.Fprintf(&sb, ". %s", s.SceneContext.Beat)
		}
	}
	if s.ContextEnabled && s.AutoContext != nil && s.AutoContext.Heading != "" && s.SceneContext == nil {
		fmt.Fprintf(&sb, "\nScene: %s", s.AutoContext.Heading)
	}
	return sb.String()
}

func (b *Builder) contextBlock(in Input, excerpt string) string {
	s := in.State
	var sb strings.Builder

	if s.SelectedTextContext != nil {
		sb.WriteString("<selected_text>\n")
		sb.WriteString(s.SelectedTextContext.Text)
		sb.WriteString("\n</selected_text>\n")
		if s.WasInRewriteMode {
			sb.WriteString("The user wants the selected text rewritten.\n")
		}
	}

	if s.SceneContext != nil {
		sb.WriteString("<scene>\n")
		writeScene(&sb, s.SceneContext.SceneNumber, s.SceneContext.Heading, s.SceneContext.Characters, s.SceneContext.Beat)
		sb.WriteString("</scene>\n")
	}

	if s.ContextEnabled && s.AutoContext != nil {
		sb.WriteString("<cursor_context source=\"" + s.AutoContext.Source + "\">\n")
		writeScene(&sb, 0, s.AutoContext.Heading, s.AutoContext.Characters, "")
		if s.AutoContext.Excerpt != "" {
			sb.WriteString(s.AutoContext.Excerpt)
			sb.WriteString("\n")
		}
		sb.WriteString("</cursor_context>\n")
	}

	if s.EntityContextBanner != nil {
		fmt.Fprintf(&sb, "<entity type=%q>\n", s.EntityContextBanner.Type)
		for _, k := range sortedKeys(s.EntityContextBanner.Seed) {
			fmt.Fprintf(&sb, "%s: %s\n", k, s.EntityContextBanner.Seed[k])
		}
		sb.WriteString("</entity>\n")
	}

	if len(s.Attachments) > 0 {
		sb.WriteString("<attachments>\n")
		for _, a := range s.Attachments {
			sb.WriteString("- " + a.Name + "\n")
		}
		sb.WriteString("</attachments>\n")
	}

	if s.ContextEnabled && excerpt != "" {
		sb.WriteString("<screenplay_excerpt>\n")
		sb.WriteString(excerpt)
		sb.WriteString("\n</screenplay_excerpt>\n")
	}

	return sb.String()
}

func writeScene(sb *strings.Builder, number int, heading string, characters []string, beat string) {
	if number > 0 {
		fmt.Fprintf(sb, "Scene %d\n", number)
	}
	if heading != "" {
		sb.WriteString(heading + "\n")
	}
	if len(characters) > 0 {
		sb.WriteString("Characters: " + strings.Join(characters, ", ") + "\n")
	}
	if beat != "" {
		sb.WriteString("Beat: " + beat + "\n")
	}
}

func (b *Builder) count(text string) int {
	n, err := b.counter.Count(text)
	if err != nil {
		// Rough fallback of four bytes per token.
		return len(text) / 4
	}
	return n
}

// transcript converts stored messages, leaving out the pending user prompt.
func transcript(messages []store.Message, pending string) []llm.Message {
	if n := len(messages); n > 0 && messages[n-1].Role == store.RoleUser && messages[n-1].Content == pending {
		messages = messages[:n-1]
	}
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// Excerpt returns up to radius bytes either side of cursor, snapped to line boundaries.
func Excerpt(content string, cursor, radius int) string {
	if content == "" {
		return ""
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(content) {
		cursor = len(content)
	}
	start := max(cursor-radius, 0)
	end := min(cursor+radius, len(content))
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	if start > 0 {
		if i := strings.IndexByte(content[start:cursor], '\n'); i >= 0 {
			start += i + 1
		}
	}
	if end < len(content) {
		if i := strings.LastIndexByte(content[cursor:end], '\n'); i >= 0 {
			end = cursor + i
		}
	}
	return strings.TrimSpace(content[start:end])
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
