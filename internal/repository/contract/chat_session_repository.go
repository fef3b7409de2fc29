package contract

import (
	"context"

	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	// UpdateSettings writes only the mode and model columns.
	UpdateSettings(ctx context.Context, id uuid.UUID, activeMode, modelName string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
