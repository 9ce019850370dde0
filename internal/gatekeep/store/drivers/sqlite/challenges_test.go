package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store/storetest"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestChallenges(t *testing.T) {
	storetest.RunChallenges(t, func(t *testing.T) (store.Challenges, string) {
		s := newTestStore(t)
		u := seedUser(t, s, "challenges@example.com")
		return s.Challenges(), u.ID
	})
}

func TestChallengesDeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "hygiene@example.com")
	repo := s.Challenges()

	t0 := time.Unix(1_700_000_000, 0).UTC()
	for i, f := range domain.AllFactors {
		require.NoError(t, repo.Put(ctx, domain.Challenge{
			ID:        idx.NewAt(t0).String(),
			Key:       domain.ChallengeKey{Purpose: domain.PurposeEnrollment, UserID: u.ID, Factor: f},
			CreatedAt: t0,
			ExpiresAt: t0.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	n, err := repo.DeleteExpired(ctx, t0.Add(90*time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = repo.Get(ctx, domain.ChallengeKey{Purpose: domain.PurposeEnrollment, UserID: u.ID, Factor: domain.AllFactors[0]})
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = repo.Get(ctx, domain.ChallengeKey{Purpose: domain.PurposeEnrollment, UserID: u.ID, Factor: domain.AllFactors[1]})
	require.NoError(t, err)
}

func TestChallengesCascadeWithUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Challenges().Put(ctx, domain.Challenge{
		ID:        idx.New().String(),
		Key:       domain.ChallengeKey{Purpose: domain.PurposeLogin, UserID: "ghost", Factor: domain.FactorTOTP},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	})
	require.Error(t, err, "foreign key should reject challenges for unknown users")
}
