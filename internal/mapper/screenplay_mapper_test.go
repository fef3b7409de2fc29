package mapper

import (
	"testing"

	"ai-screenwriting-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestScreenplayMapperJSONColumns(t *testing.T) {
	m := NewScreenplayMapper()

	in := &entity.ScreenplayEntity{
		Id:         uuid.New(),
		WorkflowId: uuid.New(),
		EntityType: "location",
		Name:       "The Docks",
		Answers:    map[string]string{"name": "The Docks", "setting": "exterior"},
	}

	row, err := m.ToModel(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"The Docks","setting":"exterior"}`, string(row.Answers))
	assert.JSONEq(t, `{}`, string(row.Seed))

	out, err := m.ToEntity(row)
	require.NoError(t, err)
	assert.Equal(t, in.Answers, out.Answers)
	assert.Empty(t, out.Seed)

	row.Answers = datatypes.JSON(`["not","an","object"]`)
	_, err = m.ToEntity(row)
	assert.Error(t, err)
}
