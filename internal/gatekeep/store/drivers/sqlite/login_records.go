package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
)

type loginRecordsRepo struct {
	db dbtx
}

const loginRecordColumns = `id, user_id, ip, device, location, created_at, success, factor, logged_out, logged_out_at`

func (r *loginRecordsRepo) AppendLoginRecord(ctx context.Context, rec domain.LoginRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_records (`+loginRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.IP,
		rec.Device,
		rec.Location,
		toNanos(rec.Timestamp),
		rec.Success,
		string(rec.Factor),
		rec.LoggedOut,
		mapOptionalNanos(rec.LoggedOutAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *loginRecordsRepo) GetLoginRecord(ctx context.Context, userID, recordID string) (domain.LoginRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loginRecordColumns+` FROM login_records WHERE id = ? AND user_id = ?`,
		recordID, userID,
	)
	return scanLoginRecord(row)
}

func (r *loginRecordsRepo) MarkLoggedOut(ctx context.Context, userID, recordID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE login_records
		SET logged_out = 1, logged_out_at = ?
		WHERE id = ? AND user_id = ? AND success = 1 AND logged_out = 0`,
		toNanos(at), recordID, userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *loginRecordsRepo) QueryLoginRecords(ctx context.Context, userID string, limit, offset int) ([]domain.LoginRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+loginRecordColumns+`
		FROM login_records
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LoginRecord, 0, limit)
	for rows.Next() {
		rec, err := scanLoginRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoginRecord(s scanner) (domain.LoginRecord, error) {
	var (
		rec         domain.LoginRecord
		createdAt   int64
		factor      string
		loggedOutAt sql.NullInt64
	)
	err := s.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.IP,
		&rec.Device,
		&rec.Location,
		&createdAt,
		&rec.Success,
		&factor,
		&rec.LoggedOut,
		&loggedOutAt,
	)
	if err != nil {
		return domain.LoginRecord{}, mapNotFound(err)
	}
	rec.Timestamp = fromNanos(createdAt)
	rec.Factor = domain.FactorType(factor)
	rec.LoggedOutAt = mapNullNanos(loggedOutAt)
	return rec, nil
}
