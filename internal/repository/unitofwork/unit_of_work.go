package unitofwork

import (
	"context"

	"ai-screenwriting-be/internal/repository/contract"
)

// UnitOfWork scopes the repositories to one optional transaction.
// Repositories obtained before Begin do not join the transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ScreenplayEntityRepository() contract.ScreenplayEntityRepository
}

// Within runs fn inside a transaction on uow, committing when fn succeeds and
// rolling back otherwise.
func Within(ctx context.Context, uow UnitOfWork, fn func(UnitOfWork) error) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}
