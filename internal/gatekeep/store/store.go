package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrAlreadyExists   = errors.New("store: already exists")
	ErrAlreadyConsumed = errors.New("store: already consumed")
	ErrExpired         = errors.New("store: expired")
	ErrConflict        = errors.New("store: state conflict")
)

// Store is the root data access interface. Drivers expose sub-repositories
// so a transaction can hand out the same repositories bound to the tx.
type Store interface {
	Users() Users
	LoginRecords() LoginRecords
	Challenges() Challenges

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the account side of the user store.
type Users interface {
	// GetUserByID returns ErrNotFound for unknown ids.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// SetEnabledFactors replaces the user's factor set.
	SetEnabledFactors(ctx context.Context, userID string, factors domain.FactorSet) error

	// SetTOTPSecret stores or, with nil, clears the TOTP secret.
	SetTOTPSecret(ctx context.Context, userID string, secret *string) error

	CountUsers(ctx context.Context) (int, error)
}

// LoginRecords is the append-only login history.
type LoginRecords interface {
	AppendLoginRecord(ctx context.Context, rec domain.LoginRecord) error

	// GetLoginRecord returns ErrNotFound unless the record belongs to userID.
	GetLoginRecord(ctx context.Context, userID, recordID string) (domain.LoginRecord, error)

	// MarkLoggedOut flips logged_out for a successful, still active record
	// owned by userID. Any other case is ErrConflict, and exactly one of
	// several concurrent callers can succeed.
	MarkLoggedOut(ctx context.Context, userID, recordID string, at time.Time) error

	// QueryLoginRecords returns records newest first.
	QueryLoginRecords(ctx context.Context, userID string, limit, offset int) ([]domain.LoginRecord, error)
}

// Challenges holds at most one challenge per key.
type Challenges interface {
	// Put stores c, replacing whatever was stored under c.Key.
	Put(ctx context.Context, c domain.Challenge) error

	// Get returns ErrNotFound when no challenge is stored under key.
	Get(ctx context.Context, key domain.ChallengeKey) (domain.Challenge, error)

	// Consume marks the challenge consumed and returns it. It fails with
	// ErrNotFound, ErrAlreadyConsumed or ErrExpired, where expiry is judged
	// against now. The check and the update happen atomically.
	Consume(ctx context.Context, key domain.ChallengeKey, now time.Time) (domain.Challenge, error)

	// DeleteExpired removes challenges that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
