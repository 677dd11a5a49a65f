package domain

import "context"

// TransactionManager brackets a request's store calls in a single ambient
// transactional handle, carried on the context, so the merge state machine
// stays atomic against concurrent logins touching the same credential.
type TransactionManager interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}
