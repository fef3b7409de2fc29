package unitofwork

import (
	"context"
	"errors"
	"testing"

	"ai-screenwriting-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
)

type recordingUoW struct {
	calls    []string
	beginErr error
}

func (u *recordingUoW) Begin(context.Context) error {
	u.calls = append(u.calls, "begin")
	return u.beginErr
}

func (u *recordingUoW) Commit() error {
	u.calls = append(u.calls, "commit")
	return nil
}

func (u *recordingUoW) Rollback() error {
	u.calls = append(u.calls, "rollback")
	return nil
}

func (u *recordingUoW) ChatSessionRepository() contract.ChatSessionRepository { return nil }
func (u *recordingUoW) ChatMessageRepository() contract.ChatMessageRepository { return nil }
func (u *recordingUoW) ScreenplayEntityRepository() contract.ScreenplayEntityRepository { return nil }

func TestWithin(t *testing.T) {
	errWork := errors.New("work failed")
	errBegin := errors.New("begin failed")

	tests := []struct {
		name      string
		beginErr  error
		workErr   error
		wantErr   error
		wantCalls []string
	}{
		{name: "commits", wantCalls: []string{"begin", "work", "commit", "rollback"}},
		{name: "rolls back on failure", workErr: errWork, wantErr: errWork, wantCalls: []string{"begin", "work", "rollback"}},
		{name: "begin failure skips work", beginErr: errBegin, wantErr: errBegin, wantCalls: []string{"begin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := &recordingUoW{beginErr: tt.beginErr}
			err := Within(context.Background(), uow, func(UnitOfWork) error {
				uow.calls = append(uow.calls, "work")
				return tt.workErr
			})
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, uow.calls)
		})
	}
}
