package contract

import (
	"context"

	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/internal/repository/specification"
)

type ScreenplayEntityRepository interface {
	Create(ctx context.Context, e *entity.ScreenplayEntity) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ScreenplayEntity, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ScreenplayEntity, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
