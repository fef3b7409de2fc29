package specification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type row struct {
	Id uuid.UUID
}

func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestApply(t *testing.T) {
	sessionID := uuid.New()

	tests := []struct {
		name  string
		specs []Specification
		want  string
	}{
		{
			name: "none",
			want: `SELECT * FROM "rows"`,
		},
		{
			name:  "transcript page",
			specs: []Specification{ByChatSessionID{ChatSessionID: sessionID}, OrderBy{Field: "created_at"}, Pagination{Limit: 20, Offset: 40}},
			want:  `SELECT * FROM "rows" WHERE chat_session_id = $1 ORDER BY "created_at" LIMIT $2 OFFSET $3`,
		},
		{
			name:  "empty entity type matches all",
			specs: []Specification{ByUserID{UserID: sessionID}, ByEntityType{}, OrderBy{Field: "created_at", Desc: true}},
			want:  `SELECT * FROM "rows" WHERE user_id = $1 ORDER BY "created_at" DESC`,
		},
		{
			name:  "unbounded page",
			specs: []Specification{ByID{ID: sessionID}, Pagination{}},
			want:  `SELECT * FROM "rows" WHERE id = $1`,
		},
		{
			name:  "entity by workflow",
			specs: []Specification{ByWorkflowID{WorkflowID: sessionID}, ByEntityType{EntityType: "scene"}},
			want:  `SELECT * FROM "rows" WHERE workflow_id = $1 AND entity_type = $2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out []row
			stmt := Apply(dryRun(t), tt.specs...).Find(&out).Statement
			assert.Equal(t, tt.want, stmt.SQL.String())
		})
	}
}
