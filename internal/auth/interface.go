package auth

import (
	"context"
	"time"

	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/queue"
)

// UserStore is the slice of user persistence the managers need. Lookups
// return (nil, nil) when no live (non-deleted) user matches; the SQL
// implementation lives in internal/repository.
type UserStore interface {
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	// Create inserts the user and returns its id. Duplicate identifiers
	// surface as repository.ErrDuplicateIdentifier.
	Create(ctx context.Context, u *model.User) (uint64, error)
	// UpdateLockout persists the failed-attempt counter and lock fields in
	// one statement. Nil pointers clear the corresponding columns.
	UpdateLockout(ctx context.Context, id uint64, attempts int, lastFailedAt, lockedUntil *time.Time, status string) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	MarkEmailVerified(ctx context.Context, id uint64) error
}

// DeliveryPublisher hands a delivery event to the broker. Implemented by
// service.Publisher; failures are logged by callers, never surfaced to the
// client.
type DeliveryPublisher interface {
	Publish(ctx context.Context, ev queue.DeliveryEvent) error
}

// AuditSink records an append-only audit entry.
type AuditSink interface {
	Record(ctx context.Context, e model.AuditLog) error
}
