package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/pkg/ai/dispatcher"
	"ai-screenwriting-be/pkg/ai/router"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/metrics"
	"ai-screenwriting-be/pkg/store"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const helpText = `commands:
  :mode <chat|director|dialogue|image|quick-video|scene-visualizer>  switch the active mode
  :interview <character|location|scene> [key=value ...]  start a guided interview
  :cancel                                                 cancel the running interview
  :scene <heading>                                        set the scene context
  :insert                                                 insert the last reply into the editor
  :clear                                                  clear the transcript
  :state                                                  print the current state
  :q                                                      quit
anything else is sent as a message`

type session struct {
	dispatcher *dispatcher.Dispatcher
	out        io.Writer

	mu        sync.Mutex
	printed   int
	completed []store.WorkflowCompletion
}

func newSession(model string, r *router.Router, planner *workflow.Planner, log logger.ILogger, out io.Writer) *session {
	s := &session{out: out}
	st := store.NewStore(store.Initial(model))
	wf := workflow.NewEngine(planner, st, log, metrics.Nop())
	s.dispatcher = dispatcher.New(st, r, wf, dispatcher.Hooks{
		OnInsert: func(text string) {
			color.New(color.FgMagenta).Fprintf(s.out, "[insert] %s\n", text)
		},
		OnWorkflowComplete: func(c store.WorkflowCompletion) {
			s.mu.Lock()
			s.completed = append(s.completed, c)
			s.mu.Unlock()
		},
	}, log, metrics.Nop())
	st.Subscribe(s.render)
	return s
}

// render prints streaming deltas and newly committed assistant messages.
// It runs under the store lock.
func (s *session) render(prev, next store.State, _ []store.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next.IsStreaming && len(next.StreamingText) > s.printed {
		fmt.Fprint(s.out, next.StreamingText[s.printed:])
		s.printed = len(next.StreamingText)
	}

	if len(next.Messages) < len(prev.Messages) {
		s.printed = 0
		return
	}
	for _, m := range next.Messages[len(prev.Messages):] {
		if m.Role != store.RoleAssistant {
			continue
		}
		if s.printed > 0 {
			fmt.Fprintln(s.out)
		} else {
			color.New(color.FgCyan).Fprintln(s.out, m.Content)
		}
		s.printed = 0
	}
	if !next.IsStreaming && s.printed > 0 {
		fmt.Fprintln(s.out)
		s.printed = 0
	}
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		color.New(color.FgYellow).Fprintf(s.out, "%s> ", s.dispatcher.Store().Snapshot().ActiveMode)
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		quit, err := s.handle(ctx, scanner.Text())
		if err != nil {
			color.New(color.FgRed).Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		s.flushCompletions()
	}
}

func (s *session) handle(ctx context.Context, line string) (bool, error) {
	name, args, ok := parseCommand(line)
	if !ok {
		outcome, err := s.dispatcher.HandleSend(ctx, dispatcher.SendRequest{Text: line})
		if err != nil {
			return false, err
		}
		if outcome != dispatcher.SendAccepted && outcome != dispatcher.SendIgnoredEmpty {
			color.New(color.FgRed).Fprintf(s.out, "send %s\n", outcome)
		}
		return false, nil
	}

	switch name {
	case "q", "quit":
		return true, nil
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "mode":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: :mode <mode>")
		}
		_, err := s.dispatcher.SwitchMode(store.AgentMode(args[0]))
		return false, err
	case "interview":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: :interview <kind> [key=value ...]")
		}
		seed, err := parseSeed(args[1:])
		if err != nil {
			return false, err
		}
		_, err = s.dispatcher.Launch(ctx, dispatcher.LaunchTrigger{
			Source: dispatcher.SourceEntity,
			EntityContext: &store.EntityContextBanner{
				Type:     store.EntityType(args[0]),
				Workflow: store.WorkflowInterview,
				Seed:     seed,
			},
		})
		return false, err
	case "cancel":
		_, err := s.dispatcher.CancelWorkflow()
		return false, err
	case "scene":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: :scene <heading>")
		}
		_, err := s.dispatcher.Store().Dispatch(store.SetSceneContext{Scene: store.SceneContext{Heading: strings.Join(args, " ")}})
		return false, err
	case "insert":
		return false, s.dispatcher.Insert(lastReply(s.dispatcher.Store().Snapshot()))
	case "clear":
		_, err := s.dispatcher.Store().Dispatch(store.ClearMessages{})
		return false, err
	case "state":
		data, err := json.MarshalIndent(s.dispatcher.Store().Snapshot(), "", "  ")
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, string(data))
	default:
		return false, fmt.Errorf("unknown command :%s", name)
	}
	return false, nil
}

// flushCompletions prints finished interviews and releases them, standing in
// for the entity consumer the server runs.
func (s *session) flushCompletions() {
	s.mu.Lock()
	pending := s.completed
	s.completed = nil
	s.mu.Unlock()

	for _, c := range pending {
		color.New(color.FgGreen).Fprintf(s.out, "created %s %s\n", c.Kind, shortID(c.ID))
		for k, v := range c.Answers {
			fmt.Fprintf(s.out, "  %s: %s\n", k, v)
		}
		if _, err := s.dispatcher.CompleteWorkflow(c.ID); err != nil {
			color.New(color.FgRed).Fprintf(s.out, "error: %v\n", err)
		}
	}
}

// parseCommand splits a ":name arg..." line. ok is false for plain messages.
func parseCommand(line string) (name string, args []string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		return "", nil, false
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func parseSeed(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	seed := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		if !found || k == "" {
			return nil, fmt.Errorf("seed %q is not key=value", p)
		}
		seed[k] = v
	}
	return seed, nil
}

func lastReply(s store.State) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == store.RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
