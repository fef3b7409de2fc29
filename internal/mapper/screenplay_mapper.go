package mapper

import (
	"encoding/json"
	"time"

	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/internal/model"

	"gorm.io/datatypes"
)

type ScreenplayMapper struct{}

func NewScreenplayMapper() *ScreenplayMapper {
	return &ScreenplayMapper{}
}

func (m *ScreenplayMapper) ToEntity(s *model.ScreenplayEntity) (*entity.ScreenplayEntity, error) {
	if s == nil {
		return nil, nil
	}

	answers, err := decodeFields(s.Answers)
	if err != nil {
		return nil, err
	}
	seed, err := decodeFields(s.Seed)
	if err != nil {
		return nil, err
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ScreenplayEntity{
		Id:            s.Id,
		UserId:        s.UserId,
		ChatSessionId: s.ChatSessionId,
		WorkflowId:    s.WorkflowId,
		EntityType:    s.EntityType,
		Name:          s.Name,
		Answers:       answers,
		Seed:          seed,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func (m *ScreenplayMapper) ToModel(e *entity.ScreenplayEntity) (*model.ScreenplayEntity, error) {
	if e == nil {
		return nil, nil
	}

	answers, err := encodeFields(e.Answers)
	if err != nil {
		return nil, err
	}
	seed, err := encodeFields(e.Seed)
	if err != nil {
		return nil, err
	}

	return &model.ScreenplayEntity{
		Id:            e.Id,
		UserId:        e.UserId,
		ChatSessionId: e.ChatSessionId,
		WorkflowId:    e.WorkflowId,
		EntityType:    e.EntityType,
		Name:          e.Name,
		Answers:       answers,
		Seed:          seed,
		CreatedAt:     e.CreatedAt,
	}, nil
}

func encodeFields(fields map[string]string) (datatypes.JSON, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeFields(raw datatypes.JSON) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
