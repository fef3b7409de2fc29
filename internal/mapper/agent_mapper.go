package mapper

import (
	"ai-screenwriting-be/internal/dto"
	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/pkg/ai/dispatcher"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/store"

	"github.com/google/uuid"
)

type AgentMapper struct{}

func NewAgentMapper() *AgentMapper {
	return &AgentMapper{}
}

func (m *AgentMapper) Range(r *dto.RangeDTO) *store.Range {
	if r == nil {
		return nil
	}
	return &store.Range{Start: r.Start, End: r.End}
}

func (m *AgentMapper) Scene(s *dto.SceneContextDTO) *store.SceneContext {
	if s == nil {
		return nil
	}
	return &store.SceneContext{
		SceneNumber: s.SceneNumber,
		Heading:     s.Heading,
		Characters:  s.Characters,
		Beat:        s.Beat,
	}
}

func (m *AgentMapper) Banner(e *dto.EntityContextDTO) *store.EntityContextBanner {
	if e == nil {
		return nil
	}
	return &store.EntityContextBanner{
		Type:     store.EntityType(e.Type),
		Workflow: e.Workflow,
		Seed:     e.Seed,
	}
}

func (m *AgentMapper) Trigger(req *dto.LaunchRequest) *dispatcher.LaunchTrigger {
	if req == nil {
		return nil
	}
	return &dispatcher.LaunchTrigger{
		Source:         req.Source,
		Mode:           store.AgentMode(req.Mode),
		SelectedText:   req.SelectedText,
		SelectionRange: m.Range(req.SelectionRange),
		InitialPrompt:  req.InitialPrompt,
		SceneContext:   m.Scene(req.SceneContext),
		EntityContext:  m.Banner(req.EntityContext),
	}
}

func (m *AgentMapper) MountOptions(req *dto.MountRequest) dispatcher.MountOptions {
	return dispatcher.MountOptions{
		Trigger:        m.Trigger(req.Trigger),
		InitialMode:    store.AgentMode(req.InitialMode),
		InitialPrompt:  req.InitialPrompt,
		SelectedText:   req.SelectedText,
		SelectionRange: m.Range(req.SelectionRange),
	}
}

func (m *AgentMapper) MessageResponse(msg *entity.ChatMessage) dto.MessageResponse {
	return dto.MessageResponse{
		Id:        msg.Id,
		Role:      msg.Role,
		Content:   msg.Content,
		Mode:      msg.Mode,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *AgentMapper) TranscriptMessage(sessionID uuid.UUID, msg store.Message) *entity.ChatMessage {
	return &entity.ChatMessage{
		Id:            msg.ID,
		ChatSessionId: sessionID,
		Role:          string(msg.Role),
		Content:       msg.Content,
		Mode:          string(msg.Mode),
		CreatedAt:     msg.Timestamp,
	}
}

func (m *AgentMapper) InterviewResponse(iv workflow.Interview) dto.InterviewResponse {
	steps := make([]dto.InterviewStepResponse, len(iv.Steps))
	for i, s := range iv.Steps {
		steps[i] = dto.InterviewStepResponse{
			Key:      s.Key,
			Question: s.Question,
			Required: s.Required,
			Choices:  s.Choices,
		}
	}
	return dto.InterviewResponse{
		Kind:  string(iv.Kind),
		Intro: iv.Intro,
		Steps: steps,
	}
}

func (m *AgentMapper) EntityResponse(e *entity.ScreenplayEntity) dto.ScreenplayEntityResponse {
	return dto.ScreenplayEntityResponse{
		Id:            e.Id,
		ChatSessionId: e.ChatSessionId,
		Type:          e.EntityType,
		Name:          e.Name,
		Answers:       e.Answers,
		Seed:          e.Seed,
		CreatedAt:     e.CreatedAt,
	}
}
