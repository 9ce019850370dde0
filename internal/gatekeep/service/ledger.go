package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// LedgerService is the append-only record of login attempts. Records are
// never edited except for the one-way logged out transition.
type LedgerService struct {
	Store store.Store
	Now   func() time.Time
}

// Record appends rec and returns its id. ID and Timestamp are assigned
// here when unset.
func (s *LedgerService) Record(ctx context.Context, rec domain.LoginRecord) (string, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = nowFrom(s.Now)
	}
	if rec.ID == "" {
		rec.ID = idx.NewAt(rec.Timestamp).String()
	}
	rec.LoggedOut = false
	rec.LoggedOutAt = nil

	if err := s.Store.LoginRecords().AppendLoginRecord(ctx, rec); err != nil {
		return "", domain.Dependency("append login record", err)
	}
	return rec.ID, nil
}

// MarkLoggedOut ends a session. Only a successful, still active record
// owned by userID can be logged out, and only once.
func (s *LedgerService) MarkLoggedOut(ctx context.Context, userID, recordID string) error {
	err := s.Store.LoginRecords().MarkLoggedOut(ctx, userID, recordID, nowFrom(s.Now))
	switch {
	case err == nil:
		slogx.FromContext(ctx).Info("session logged out", slog.String("user_id", userID), slog.String("session_id", recordID))
		return nil
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrNotFound):
		return domain.ErrInvalidSessionState
	default:
		return domain.Dependency("mark logged out", err)
	}
}

// Query returns one page of the user's history, most recent first. Pages
// start at 1; a zero pageSize means DefaultPageSize.
func (s *LedgerService) Query(ctx context.Context, userID string, page, pageSize int) (domain.SessionPage, error) {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return domain.SessionPage{}, domain.ErrInvalidPage
	}

	recs, err := s.Store.LoginRecords().QueryLoginRecords(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return domain.SessionPage{}, domain.Dependency("query login records", err)
	}
	if recs == nil {
		recs = []domain.LoginRecord{}
	}
	return domain.SessionPage{Records: recs, Page: page, PageSize: pageSize}, nil
}

// IsActive reports whether recordID is a successful login of userID that
// has not been logged out.
func (s *LedgerService) IsActive(ctx context.Context, userID, recordID string) (bool, error) {
	rec, err := s.Store.LoginRecords().GetLoginRecord(ctx, userID, recordID)
	switch {
	case err == nil:
		return rec.Success && !rec.LoggedOut, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, domain.Dependency("load login record", err)
	}
}
