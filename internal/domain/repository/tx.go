package repository

import "context"

// Store bundles the repositories that participate in one login transaction.
// Every repository obtained from the same Store shares one transaction, so a
// lookup-then-create sequence sees a consistent snapshot and rolls back as a
// whole on failure.
type Store interface {
	Users() UserRepository
	Identities() UserIdentityRepository
	Memberships() MembershipRepository
}

// TxManager runs fn inside a single storage transaction. The transaction
// commits when fn returns nil and rolls back entirely otherwise.
type TxManager interface {
	Do(ctx context.Context, fn func(store Store) error) error
}
