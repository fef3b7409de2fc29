// Package workflow runs the guided interview that collects answers for a new
// screenplay entity. It only ever produces store actions; the entity itself is
// created by whoever consumes the staged completion.
package workflow

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"ai-screenwriting-be/pkg/store"

	"github.com/google/uuid"
)

// Transition is the outcome of feeding one answer to a running interview.
type Transition struct {
	Actions    []store.Action
	Reply      string
	Reprompted bool
	Completion *store.WorkflowCompletion
}

// Completed reports whether the answer finished the interview.
func (t Transition) Completed() bool {
	return t.Completion != nil
}

// Planner turns interview events into store actions. It holds no state of its own.
type Planner struct {
	catalog *Catalog
	now     func() time.Time
}

func NewPlanner(catalog *Catalog) *Planner {
	return &Planner{
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (p *Planner) Catalog() *Catalog {
	return p.catalog
}

// Start plans the beginning of an interview for banner.Type. The returned batch
// installs the banner and the cursor together so neither is ever seen alone.
func (p *Planner) Start(banner store.EntityContextBanner) ([]store.Action, error) {
	iv, err := p.catalog.Lookup(banner.Type)
	if err != nil {
		return nil, err
	}
	if banner.Workflow == "" {
		banner.Workflow = store.WorkflowInterview
	}

	intro := iv.Steps[0].Question
	if iv.Intro != "" {
		intro = iv.Intro + "\n\n" + intro
	}
	placeholder := iv.Placeholder
	if placeholder == "" {
		placeholder = store.DefaultPlaceholder
	}

	return []store.Action{
		store.SetEntityBanner{Banner: banner},
		store.SetWorkflow{Workflow: &store.ActiveWorkflow{
			Kind:             banner.Type,
			StepIndex:        0,
			CollectedAnswers: map[string]string{},
		}},
		store.ClearWorkflowCompletion{},
		store.SetPlaceholder{Text: placeholder},
		store.AppendMessage{Message: store.NewMessage(store.RoleAssistant, intro, store.ModeChat)},
	}, nil
}

// Answer plans the effect of one user answer on the running interview in s.
// An answer that fails validation re-asks the same step.
func (p *Planner) Answer(s store.State, answer string) (Transition, error) {
	wf := s.ActiveWorkflow
	if wf == nil {
		return Transition{}, ErrNoWorkflow
	}
	iv, err := p.catalog.Lookup(wf.Kind)
	if err != nil {
		return Transition{}, err
	}
	if wf.StepIndex < 0 || wf.StepIndex >= len(iv.Steps) {
		return Transition{}, fmt.Errorf("workflow %s: step %d out of range", wf.Kind, wf.StepIndex)
	}

	step := iv.Steps[wf.StepIndex]
	answer = strings.TrimSpace(answer)
	if err := step.Validate(answer); err != nil {
		reply := fmt.Sprintf("%s\n\n%s", reason(err), step.Question)
		return Transition{
			Actions:    []store.Action{assistantReply(reply)},
			Reply:      reply,
			Reprompted: true,
		}, nil
	}

	answers := maps.Clone(wf.CollectedAnswers)
	if answers == nil {
		answers = map[string]string{}
	}
	answers[step.Key] = canonical(step, answer)

	next := wf.StepIndex + 1
	if next < len(iv.Steps) {
		reply := iv.Steps[next].Question
		return Transition{
			Actions: []store.Action{
				store.SetWorkflow{Workflow: &store.ActiveWorkflow{
					Kind:             wf.Kind,
					StepIndex:        next,
					CollectedAnswers: answers,
				}},
				assistantReply(reply),
			},
			Reply: reply,
		}, nil
	}

	completion := store.WorkflowCompletion{
		ID:          uuid.New(),
		Kind:        wf.Kind,
		Answers:     answers,
		CompletedAt: p.now(),
	}
	if s.EntityContextBanner != nil {
		completion.Seed = maps.Clone(s.EntityContextBanner.Seed)
	}
	reply := fmt.Sprintf("That's everything I need. Creating your %s now.", wf.Kind)
	return Transition{
		Actions: []store.Action{
			store.SetWorkflow{Workflow: nil},
			store.SetWorkflowCompletion{Completion: completion},
			assistantReply(reply),
		},
		Reply:      reply,
		Completion: &completion,
	}, nil
}

// Cancel plans an explicit exit. Collected answers are discarded.
func (p *Planner) Cancel() []store.Action {
	return []store.Action{store.ClearWorkflow{}}
}

func assistantReply(text string) store.Action {
	return store.AppendMessage{Message: store.NewMessage(store.RoleAssistant, text, store.ModeChat)}
}

func reason(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrInvalidAnswer.Error()+": ")
	if msg == "" {
		return "I didn't catch that."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

// canonical maps a choice answer to the configured spelling.
func canonical(step Step, answer string) string {
	for _, c := range step.Choices {
		if strings.EqualFold(c, answer) {
			return c
		}
	}
	return answer
}
