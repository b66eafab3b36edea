package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joblens/joblens/internal/cache"
	"github.com/joblens/joblens/internal/models"
	"github.com/joblens/joblens/internal/utils"
)

func newHistoryFixture() (*historyService, *fakeHistoryRepo, *fakeInteractionRepo, *fakeCache) {
	histories := newFakeHistoryRepo()
	interactions := &fakeInteractionRepo{}
	c := newFakeCache()
	svc := &historyService{
		histories:    histories,
		interactions: interactions,
		cache:        c,
		log:          logrus.New(),
		maxRetries:   3,
		baseDelay:    time.Millisecond,
	}
	return svc, histories, interactions, c
}

func TestRecordInteraction_Validation(t *testing.T) {
	svc, _, _, _ := newHistoryFixture()
	ctx := context.Background()

	err := svc.RecordInteraction(ctx, RecordInteractionInput{JobID: "j1", Type: models.InteractionView})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	err = svc.RecordInteraction(ctx, RecordInteractionInput{UserID: "u1", Type: models.InteractionView})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	err = svc.RecordInteraction(ctx, RecordInteractionInput{UserID: "u1", JobID: "j1", Type: "teleport"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestRecordInteraction_ApplyCascade(t *testing.T) {
	svc, histories, interactions, c := newHistoryFixture()
	ctx := context.Background()

	err := svc.RecordInteraction(ctx, RecordInteractionInput{
		UserID: "u1", JobID: "j1", Type: models.InteractionApply,
	})
	require.NoError(t, err)

	h := histories.get("u1", "j1")
	require.NotNil(t, h)
	assert.NotNil(t, h.AppliedAt)
	assert.NotNil(t, h.ClickedAt)
	assert.NotNil(t, h.ViewedAt)
	assert.Nil(t, h.FavoritedAt)

	require.Len(t, interactions.events, 1)
	assert.Equal(t, models.InteractionApply, interactions.events[0].Type)

	require.Len(t, c.delPrefixCalls, 1)
	assert.Equal(t, cache.MatchPrefix("u1"), c.delPrefixCalls[0])
}

func TestRecordInteraction_DoubleApplyKeepsSingleRow(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()
	ctx := context.Background()

	in := RecordInteractionInput{UserID: "u1", JobID: "j1", Type: models.InteractionApply}
	require.NoError(t, svc.RecordInteraction(ctx, in))
	first := histories.get("u1", "j1")
	require.NotNil(t, first)

	require.NoError(t, svc.RecordInteraction(ctx, in))
	assert.Equal(t, 1, histories.count(), "same pair must never grow a second row")
	second := histories.get("u1", "j1")
	assert.Equal(t, *first.AppliedAt, *second.AppliedAt, "first applied timestamp sticks")
}

func TestRecordInteraction_ViewThenApplyPreservesViewTimestamp(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()
	ctx := context.Background()

	require.NoError(t, svc.RecordInteraction(ctx, RecordInteractionInput{
		UserID: "u1", JobID: "j1", Type: models.InteractionView,
	}))
	viewedAt := *histories.get("u1", "j1").ViewedAt

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, svc.RecordInteraction(ctx, RecordInteractionInput{
		UserID: "u1", JobID: "j1", Type: models.InteractionApply,
	}))

	h := histories.get("u1", "j1")
	assert.Equal(t, viewedAt, *h.ViewedAt)
	assert.True(t, h.AppliedAt.After(viewedAt) || h.AppliedAt.Equal(viewedAt))
}

func TestRecordInteraction_FeedbackStored(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()

	require.NoError(t, svc.RecordInteraction(context.Background(), RecordInteractionInput{
		UserID: "u1", JobID: "j1", Type: models.InteractionHidden, Feedback: "salary_too_low",
	}))
	h := histories.get("u1", "j1")
	assert.NotNil(t, h.HiddenAt)
	assert.Equal(t, "salary_too_low", h.Feedback)
}

func TestRecordInteraction_RetriesTransientFailure(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()
	histories.failNext = 2

	err := svc.RecordInteraction(context.Background(), RecordInteractionInput{
		UserID: "u1", JobID: "j1", Type: models.InteractionView,
	})
	require.NoError(t, err)
	assert.NotNil(t, histories.get("u1", "j1"))
}

func TestRecordInteraction_GivesUpAfterRetries(t *testing.T) {
	svc, histories, interactions, _ := newHistoryFixture()
	histories.failNext = 10

	err := svc.RecordInteraction(context.Background(), RecordInteractionInput{
		UserID: "u1", JobID: "j1", Type: models.InteractionView,
	})
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
	assert.Empty(t, interactions.events, "no event is appended when the flag update failed")
}

func TestUpsert_PreservesInteractionFlags(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()
	ctx := context.Background()

	require.NoError(t, svc.RecordInteraction(ctx, RecordInteractionInput{
		UserID: "u1", JobID: "j1", Type: models.InteractionApply,
	}))

	require.NoError(t, svc.Upsert(ctx, models.MatchScore{
		UserID: "u1", JobID: "j1", Composite: 82.5, Algorithm: models.AlgorithmHybrid,
	}, 3))

	h := histories.get("u1", "j1")
	assert.Equal(t, 82.5, h.Score)
	assert.Equal(t, 3, h.Rank)
	assert.NotNil(t, h.AppliedAt, "rescoring must not wipe interaction flags")
}

func TestUpsertBatch_SwallowsFailures(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()
	histories.failNext = 100 // every attempt fails

	svc.UpsertBatch(context.Background(), []models.MatchScore{
		{UserID: "u1", JobID: "j1", Composite: 50},
	})
	assert.Equal(t, 0, histories.count())
}

func TestUpsertBatch_AssignsRanks(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()

	svc.UpsertBatch(context.Background(), []models.MatchScore{
		{UserID: "u1", JobID: "j1", Composite: 90},
		{UserID: "u1", JobID: "j2", Composite: 80},
	})
	assert.Equal(t, 1, histories.get("u1", "j1").Rank)
	assert.Equal(t, 2, histories.get("u1", "j2").Rank)
}

func TestRecordInteraction_ConcurrentFreshPairMergesFlags(t *testing.T) {
	svc, histories, _, _ := newHistoryFixture()
	ctx := context.Background()

	// Two interactions race on a pair with no existing row. Neither insert
	// may clobber the other's flag.
	var wg sync.WaitGroup
	var applyErr, hideErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		applyErr = svc.RecordInteraction(ctx, RecordInteractionInput{
			UserID: "u1", JobID: "j1", Type: models.InteractionApply,
		})
	}()
	go func() {
		defer wg.Done()
		hideErr = svc.RecordInteraction(ctx, RecordInteractionInput{
			UserID: "u1", JobID: "j1", Type: models.InteractionHidden,
		})
	}()
	wg.Wait()

	require.NoError(t, applyErr)
	require.NoError(t, hideErr)
	assert.Equal(t, 1, histories.count())

	h := histories.get("u1", "j1")
	require.NotNil(t, h)
	assert.NotNil(t, h.AppliedAt)
	assert.NotNil(t, h.HiddenAt)
}
