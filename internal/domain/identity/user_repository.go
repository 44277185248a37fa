package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists user aggregates. Accounts are looked up by ID for
// authenticated requests and by email during login and registration; users
// are never listed or hard-deleted, deactivation is a status change.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
