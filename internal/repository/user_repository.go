package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mypharma/pharma-backend/internal/model"
)

// UserRepo persists users. Lookups return (nil, nil) when no live row
// matches so callers never need sql.ErrNoRows.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, phone, email, password_hash, role, status, is_verified,
	first_name, last_name, failed_login_attempts, last_failed_login_at,
	locked_until, created_at, updated_at, deleted_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	err := row.Scan(&u.ID, &u.Phone, &email, &u.PasswordHash, &u.Role, &u.Status,
		&u.IsVerified, &u.FirstName, &u.LastName, &u.FailedLoginAttempts,
		&u.LastFailedLoginAt, &u.LockedUntil, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone=? AND deleted_at IS NULL LIMIT 1", phone))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND deleted_at IS NULL LIMIT 1", email))
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND deleted_at IS NULL LIMIT 1", id))
}

// Create inserts the user and returns its id. A collision on the unique
// phone/email index maps to ErrDuplicateIdentifier.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	var email interface{}
	if u.Email != "" {
		email = u.Email
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (phone, email, password_hash, role, status, is_verified, first_name, last_name)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.Phone, email, u.PasswordHash, u.Role, u.Status, u.IsVerified, u.FirstName, u.LastName)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateIdentifier
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateLockout writes the failed-attempt counter and lock fields in one
// statement. Nil pointers clear the columns.
func (r *UserRepo) UpdateLockout(ctx context.Context, id uint64, attempts int, lastFailedAt, lockedUntil *time.Time, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts=?, last_failed_login_at=?, locked_until=?, status=? WHERE id=?",
		attempts, lastFailedAt, lockedUntil, status, id)
	return err
}

// UpdatePassword replaces the stored credential hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=? AND deleted_at IS NULL", hash, id)
	return err
}

// MarkEmailVerified flips the verification flag and activates the account.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_verified=1, status=? WHERE id=? AND deleted_at IS NULL",
		model.StatusActive, id)
	return err
}

// SoftDelete stamps deleted_at and deactivates the account. Lookups exclude
// soft-deleted rows, so the identifier is free for re-registration checks
// to treat as absent.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET deleted_at=NOW(), status=? WHERE id=? AND deleted_at IS NULL",
		model.StatusInactive, id)
	return err
}
