// Package storetest holds behaviour tests shared by every store driver.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

// ChallengesFactory returns an empty challenge store plus the id of a user
// that challenges may reference.
type ChallengesFactory func(t *testing.T) (store.Challenges, string)

func challenge(userID string, purpose domain.ChallengePurpose, factor domain.FactorType, secret string, created time.Time, ttl time.Duration) domain.Challenge {
	return domain.Challenge{
		ID:        idx.NewAt(created).String(),
		Key:       domain.ChallengeKey{Purpose: purpose, UserID: userID, Factor: factor},
		Secret:    secret,
		CreatedAt: created,
		ExpiresAt: created.Add(ttl),
	}
}

// RunChallenges exercises the Challenges contract against a driver. Times
// are anchored to the wall clock because drivers may derive storage TTLs
// from ExpiresAt.
func RunChallenges(t *testing.T, newStore ChallengesFactory) {
	epoch := time.Now().UTC().Truncate(time.Second)

	t.Run("consume once", func(t *testing.T) {
		ctx := context.Background()
		repo, userID := newStore(t)
		c := challenge(userID, domain.PurposeEnrollment, domain.FactorEmailOTP, "123456", epoch, 10*time.Minute)

		_, err := repo.Get(ctx, c.Key)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.Consume(ctx, c.Key, epoch)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, repo.Put(ctx, c))
		got, err := repo.Get(ctx, c.Key)
		require.NoError(t, err)
		require.Equal(t, c.ID, got.ID)
		require.False(t, got.Consumed())
		require.True(t, got.ExpiresAt.Equal(c.ExpiresAt))

		consumed, err := repo.Consume(ctx, c.Key, epoch.Add(9*time.Minute))
		require.NoError(t, err)
		require.Equal(t, c.ID, consumed.ID)
		require.Equal(t, "123456", consumed.Secret)
		require.True(t, consumed.Consumed())

		_, err = repo.Consume(ctx, c.Key, epoch.Add(9*time.Minute))
		require.ErrorIs(t, err, store.ErrAlreadyConsumed)
	})

	t.Run("expiry is judged at consume time", func(t *testing.T) {
		ctx := context.Background()
		repo, userID := newStore(t)
		c := challenge(userID, domain.PurposeEnrollment, domain.FactorEmailOTP, "123456", epoch, 10*time.Minute)
		require.NoError(t, repo.Put(ctx, c))

		_, err := repo.Consume(ctx, c.Key, epoch.Add(11*time.Minute))
		require.ErrorIs(t, err, store.ErrExpired)

		_, err = repo.Consume(ctx, c.Key, epoch.Add(10*time.Minute))
		require.ErrorIs(t, err, store.ErrExpired)
	})

	t.Run("put supersedes", func(t *testing.T) {
		ctx := context.Background()
		repo, userID := newStore(t)

		first := challenge(userID, domain.PurposeEnrollment, domain.FactorTOTP, "FIRSTSECRET", epoch, 10*time.Minute)
		require.NoError(t, repo.Put(ctx, first))
		_, err := repo.Consume(ctx, first.Key, epoch)
		require.NoError(t, err)

		second := challenge(userID, domain.PurposeEnrollment, domain.FactorTOTP, "SECONDSECRET", epoch.Add(time.Minute), 10*time.Minute)
		require.NoError(t, repo.Put(ctx, second))

		got, err := repo.Consume(ctx, second.Key, epoch.Add(2*time.Minute))
		require.NoError(t, err)
		require.Equal(t, second.ID, got.ID)
		require.Equal(t, "SECONDSECRET", got.Secret)
	})

	t.Run("keys are namespaced", func(t *testing.T) {
		ctx := context.Background()
		repo, userID := newStore(t)

		enroll := challenge(userID, domain.PurposeEnrollment, domain.FactorEmailOTP, "111111", epoch, time.Minute)
		login := challenge(userID, domain.PurposeLogin, domain.FactorEmailOTP, "222222", epoch, time.Minute)
		totp := challenge(userID, domain.PurposeLogin, domain.FactorTOTP, "", epoch, time.Minute)
		for _, c := range []domain.Challenge{enroll, login, totp} {
			require.NoError(t, repo.Put(ctx, c))
		}

		got, err := repo.Consume(ctx, login.Key, epoch)
		require.NoError(t, err)
		require.Equal(t, "222222", got.Secret)

		got, err = repo.Consume(ctx, enroll.Key, epoch)
		require.NoError(t, err)
		require.Equal(t, "111111", got.Secret)

		got, err = repo.Consume(ctx, totp.Key, epoch)
		require.NoError(t, err)
		require.Empty(t, got.Secret)
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		repo, userID := newStore(t)
		c := challenge(userID, domain.PurposeLogin, domain.FactorEmailOTP, "123456", epoch, time.Minute)
		require.NoError(t, repo.Put(context.Background(), c))

		const n = 32
		errs := make(chan error, n)
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Consume(context.Background(), c.Key, epoch)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var wins, lost int
		for err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, store.ErrAlreadyConsumed):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, wins)
		require.Equal(t, n-1, lost)
	})
}
