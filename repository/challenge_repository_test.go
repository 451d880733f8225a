package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewChallengeRepository(testDB.DB)

	challenge := testutil.CreateTestChallenge("CreatorPubKey")
	require.NoError(t, repo.Create(ctx, challenge))
	require.NotZero(t, challenge.ID)
	assert.False(t, challenge.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CreatorPubKey", got.CreatorID)
	assert.Equal(t, entities.ChallengeStatusOpen, got.Status)
	assert.True(t, challenge.Deadline.Equal(got.Deadline))
	assert.Equal(t, int64(100), got.MinBet)
	assert.Nil(t, got.WinningSide)
	assert.Equal(t, entities.CurrentSchemaVersion, got.SchemaVersion)

	missing, err := repo.GetByID(ctx, challenge.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChallengeRepository_UpdatePersistsPoolsAndResolution(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewChallengeRepository(testDB.DB)

	challenge := testutil.CreateTestChallenge("CreatorPubKey")
	require.NoError(t, repo.Create(ctx, challenge))

	challenge.AddStake(entities.BetSideWillDo, 700)
	challenge.AddStake(entities.BetSideWontDo, 300)
	challenge.PenaltyPool = 15
	challenge.Status = entities.ChallengeStatusProofPending
	require.NoError(t, challenge.TransitionTo(entities.ChallengeStatusCompleted, time.Now()))
	challenge.CreatorFeeClaimed = true
	require.NoError(t, repo.Update(ctx, challenge))

	got, err := repo.GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), got.WillDoPool)
	assert.Equal(t, int64(300), got.WontDoPool)
	assert.Equal(t, int64(1000), got.TotalPool)
	assert.Equal(t, int64(15), got.PenaltyPool)
	assert.Equal(t, entities.ChallengeStatusCompleted, got.Status)
	require.NotNil(t, got.WinningSide)
	assert.Equal(t, entities.BetSideWillDo, *got.WinningSide)
	assert.NotNil(t, got.ResolvedAt)
	assert.True(t, got.CreatorFeeClaimed)
	assert.False(t, got.CompleterFeeClaimed)
}

func TestChallengeRepository_ConstraintsRejectCorruptPools(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewChallengeRepository(testDB.DB)

	challenge := testutil.CreateTestChallenge("CreatorPubKey")
	require.NoError(t, repo.Create(ctx, challenge))

	challenge.WillDoPool = 10
	challenge.TotalPool = 11
	err := repo.Update(ctx, challenge)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	challenge.TotalPool = 10
	challenge.Status = entities.ChallengeStatusExpired
	err = repo.Update(ctx, challenge)
	assert.ErrorIs(t, err, domain.ErrValidation, "terminal status without a winning side")
}

func TestChallengeRepository_GetDueForExpiry(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewChallengeRepository(testDB.DB)
	now := time.Now().UTC()

	due := testutil.CreateTestChallengeWithDeadline("a", now.Add(-time.Minute))
	require.NoError(t, repo.Create(ctx, due))

	dueProofPending := testutil.CreateTestChallengeWithDeadline("b", now.Add(-2*time.Minute))
	dueProofPending.Status = entities.ChallengeStatusProofPending
	require.NoError(t, repo.Create(ctx, dueProofPending))

	notDue := testutil.CreateTestChallengeWithDeadline("c", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, notDue))

	ids, err := repo.GetDueForExpiry(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{dueProofPending.ID, due.ID}, ids)

	open := entities.ChallengeStatusOpen
	listed, err := repo.List(ctx, &open)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// Concurrent stake updates must serialize on the row lock and never lose an update
func TestChallengeRepository_GetForUpdateSerializesWriters(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	challenge := testutil.CreateTestChallenge("CreatorPubKey")
	require.NoError(t, NewChallengeRepository(testDB.DB).Create(ctx, challenge))

	factory := NewUnitOfWorkFactory(testDB.DB)
	const writers = 12

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uow := factory.CreateWithPublisher(nil)
			if err := uow.Begin(ctx); err != nil {
				errs <- err
				return
			}
			defer uow.Rollback()

			locked, err := uow.ChallengeRepository().GetForUpdate(ctx, challenge.ID)
			if err != nil {
				errs <- err
				return
			}
			locked.AddStake(entities.BetSideWontDo, 50)
			time.Sleep(5 * time.Millisecond)
			if err := uow.ChallengeRepository().Update(ctx, locked); err != nil {
				errs <- err
				return
			}
			errs <- uow.Commit()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := NewChallengeRepository(testDB.DB).GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*50), got.WontDoPool)
	assert.Equal(t, int64(writers*50), got.TotalPool)
}
