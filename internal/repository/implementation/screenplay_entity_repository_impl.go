package implementation

import (
	"context"
	"errors"

	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/internal/mapper"
	"ai-screenwriting-be/internal/model"
	"ai-screenwriting-be/internal/repository/contract"
	"ai-screenwriting-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ScreenplayEntityRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ScreenplayMapper
}

func NewScreenplayEntityRepository(db *gorm.DB) contract.ScreenplayEntityRepository {
	return &ScreenplayEntityRepositoryImpl{
		db:     db,
		mapper: mapper.NewScreenplayMapper(),
	}
}

func (r *ScreenplayEntityRepositoryImpl) Create(ctx context.Context, e *entity.ScreenplayEntity) error {
	m, err := r.mapper.ToModel(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	created, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

func (r *ScreenplayEntityRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ScreenplayEntity, error) {
	var m model.ScreenplayEntity
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *ScreenplayEntityRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ScreenplayEntity, error) {
	var models []*model.ScreenplayEntity
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ScreenplayEntity, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (r *ScreenplayEntityRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.ScreenplayEntity{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
