package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
)

type challengesRepo struct {
	db dbtx
}

func (r *challengesRepo) Put(ctx context.Context, c domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenges (purpose, user_id, factor, id, secret, created_at, expires_at, consumed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (purpose, user_id, factor) DO UPDATE SET
			id          = excluded.id,
			secret      = excluded.secret,
			created_at  = excluded.created_at,
			expires_at  = excluded.expires_at,
			consumed_at = excluded.consumed_at`,
		string(c.Key.Purpose),
		c.Key.UserID,
		string(c.Key.Factor),
		c.ID,
		c.Secret,
		toNanos(c.CreatedAt),
		toNanos(c.ExpiresAt),
		mapOptionalNanos(c.ConsumedAt),
	)
	return err
}

func (r *challengesRepo) Get(ctx context.Context, key domain.ChallengeKey) (domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, secret, created_at, expires_at, consumed_at
		FROM challenges
		WHERE purpose = ? AND user_id = ? AND factor = ?`,
		string(key.Purpose), key.UserID, string(key.Factor),
	)
	return scanChallenge(row, key)
}

// Consume is a single conditional UPDATE, so SQLite's write lock decides
// the winner between concurrent callers. Losers re-read the row only to
// report why they lost.
func (r *challengesRepo) Consume(ctx context.Context, key domain.ChallengeKey, now time.Time) (domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE challenges
		SET consumed_at = ?
		WHERE purpose = ? AND user_id = ? AND factor = ?
		  AND consumed_at IS NULL
		  AND expires_at > ?
		RETURNING id, secret, created_at, expires_at, consumed_at`,
		toNanos(now),
		string(key.Purpose), key.UserID, string(key.Factor),
		toNanos(now),
	)
	c, err := scanChallenge(row, key)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Challenge{}, err
	}

	current, err := r.Get(ctx, key)
	if err != nil {
		return domain.Challenge{}, err
	}
	switch {
	case current.Consumed():
		return domain.Challenge{}, store.ErrAlreadyConsumed
	case current.ExpiredAt(now):
		return domain.Challenge{}, store.ErrExpired
	default:
		// Replaced by a newer Put between our update and the read.
		return domain.Challenge{}, store.ErrAlreadyConsumed
	}
}

func (r *challengesRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= ?`, toNanos(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanChallenge(row *sql.Row, key domain.ChallengeKey) (domain.Challenge, error) {
	var (
		c                    domain.Challenge
		createdAt, expiresAt int64
		consumedAt           sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Secret, &createdAt, &expiresAt, &consumedAt); err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	c.Key = key
	c.CreatedAt = fromNanos(createdAt)
	c.ExpiresAt = fromNanos(expiresAt)
	c.ConsumedAt = mapNullNanos(consumedAt)
	return c, nil
}
