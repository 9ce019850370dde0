package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

var ErrSeedIncomplete = errors.New("seed user needs both email and password")

// SeedUser creates the account for email unless it already exists. It
// reports whether a user was created. An existing account is left alone,
// including its password.
func SeedUser(ctx context.Context, st store.Store, hasher cryptox.PasswordHasher, email, password string) (bool, error) {
	l := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, ErrSeedIncomplete
	}

	_, err := st.Users().GetUserByEmail(ctx, email)
	if err == nil {
		l.Debug("seed user already present")
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("failed to look up seed user: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash seed password: %w", err)
	}

	u := domain.User{
		ID:             idx.New().String(),
		Email:          email,
		PasswordHash:   hash,
		EnabledFactors: domain.FactorSet{},
	}
	if err := st.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create seed user: %w", err)
	}

	l.Info("seed user created", slog.String("user_id", u.ID), slog.String("email", email))
	return true, nil
}
