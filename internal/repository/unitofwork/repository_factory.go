package unitofwork

import "context"

// RepositoryFactory hands out one short-lived UnitOfWork per request or message.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
