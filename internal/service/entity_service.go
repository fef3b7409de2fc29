package service

import (
	"context"
	"fmt"
	"strings"

	"ai-screenwriting-be/internal/dto"
	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/internal/mapper"
	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/internal/repository/specification"
	"ai-screenwriting-be/internal/repository/unitofwork"
	"ai-screenwriting-be/pkg/events"

	"github.com/google/uuid"
)

const entityLogModule = "EntityService"

// WorkflowCompleter clears a delivered completion from its live session.
type WorkflowCompleter interface {
	CompleteWorkflow(sessionID, completionID uuid.UUID) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IEntityService interface {
	CreateFromWorkflow(ctx context.Context, msg *dto.WorkflowCompletedMessage) error
	List(ctx context.Context, userID uuid.UUID, req *dto.ListEntitiesRequest) ([]dto.ScreenplayEntityResponse, error)
}

type entityService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  EventPublisher
	completer  WorkflowCompleter
	logger     logger.ILogger
	mapper     *mapper.AgentMapper
}

func NewEntityService(uowFactory unitofwork.RepositoryFactory, publisher EventPublisher, completer WorkflowCompleter, log logger.ILogger) IEntityService {
	return &entityService{
		uowFactory: uowFactory,
		publisher:  publisher,
		completer:  completer,
		logger:     log,
		mapper:     mapper.NewAgentMapper(),
	}
}

// CreateFromWorkflow stores the entity an interview produced, announces it and
// clears the completion from the session. A completion already stored is only
// cleared again.
func (s *entityService) CreateFromWorkflow(ctx context.Context, msg *dto.WorkflowCompletedMessage) error {
	c := msg.Completion
	if c.ID == uuid.Nil || c.Kind == "" {
		return fmt.Errorf("%w: completion without id or kind", errPoison)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.ScreenplayEntityRepository().FindOne(ctx, specification.ByWorkflowID{WorkflowID: c.ID})
	if err != nil {
		return err
	}

	if existing == nil {
		e := &entity.ScreenplayEntity{
			Id:            uuid.New(),
			UserId:        msg.UserId,
			ChatSessionId: msg.SessionId,
			WorkflowId:    c.ID,
			EntityType:    string(c.Kind),
			Name:          entityName(string(c.Kind), c.Answers),
			Answers:       c.Answers,
			Seed:          c.Seed,
			CreatedAt:     c.CompletedAt,
		}

		err := unitofwork.Within(ctx, uow, func(tx unitofwork.UnitOfWork) error {
			return tx.ScreenplayEntityRepository().Create(ctx, e)
		})
		if err != nil {
			return err
		}

		s.logger.Info(entityLogModule, "Entity created", map[string]interface{}{
			"entity_id":   e.Id,
			"entity_type": e.EntityType,
			"session_id":  msg.SessionId,
		})
		s.announce(ctx, e)
	}

	if err := s.completer.CompleteWorkflow(msg.SessionId, c.ID); err != nil {
		// The session may have expired; the entity is stored either way.
		s.logger.Warn(entityLogModule, "Could not clear workflow completion", map[string]interface{}{
			"session_id": msg.SessionId,
			"error":      err.Error(),
		})
	}
	return nil
}

func (s *entityService) announce(ctx context.Context, e *entity.ScreenplayEntity) {
	event := events.New(events.EntityCreated, map[string]interface{}{
		"entity_id":   e.Id.String(),
		"entity_type": e.EntityType,
		"name":        e.Name,
		"session_id":  e.ChatSessionId.String(),
		"user_id":     e.UserId.String(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error(entityLogModule, "Failed to publish entity event", map[string]interface{}{
			"entity_id": e.Id,
			"error":     err.Error(),
		})
	}
}

func entityName(kind string, answers map[string]string) string {
	for _, key := range []string{"name", "heading"} {
		if v := strings.TrimSpace(answers[key]); v != "" {
			return v
		}
	}
	return "Untitled " + kind
}

func (s *entityService) List(ctx context.Context, userID uuid.UUID, req *dto.ListEntitiesRequest) ([]dto.ScreenplayEntityResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 20
	}
	rows, err := s.uowFactory.NewUnitOfWork(ctx).ScreenplayEntityRepository().FindAll(ctx,
		specification.ByUserID{UserID: userID},
		specification.ByEntityType{EntityType: req.Type},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ScreenplayEntityResponse, len(rows))
	for i, e := range rows {
		out[i] = s.mapper.EntityResponse(e)
	}
	return out, nil
}
