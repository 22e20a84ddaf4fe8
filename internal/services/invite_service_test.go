package services

import (
	"context"
	"testing"
	"time"

	"channelgate/internal/common"
	"channelgate/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInviteIssueBindsLink(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo()
	tg := new(MockTelegramService)
	svc := NewInviteService(repo, tg, 48*time.Hour, zaptest.NewLogger(t))

	sub := newPaidSubscription("9876543210", time.Hour)
	require.NoError(t, repo.Create(ctx, sub))

	tg.On("CreateInviteLink", mock.Anything, 48*time.Hour).Return("https://t.me/+fresh", nil)

	link, err := svc.Issue(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+fresh", link)

	got, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+fresh", got.InviteLink)
	assert.False(t, got.InviteConsumed)
}

func TestInviteIssueRejectsLiveInvite(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo()
	tg := new(MockTelegramService)
	svc := NewInviteService(repo, tg, 48*time.Hour, zaptest.NewLogger(t))

	sub := newPaidSubscription("9876543210", time.Hour)
	sub.InviteLink = "https://t.me/+live"
	require.NoError(t, repo.Create(ctx, sub))

	_, err := svc.Issue(ctx, sub.ID)
	assert.ErrorIs(t, err, common.ErrConflict)
	tg.AssertNotCalled(t, "CreateInviteLink", mock.Anything, mock.Anything)
}

func TestInviteIssueAllowsReissueAfterConsumption(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo()
	tg := new(MockTelegramService)
	svc := NewInviteService(repo, tg, 48*time.Hour, zaptest.NewLogger(t))

	sub := newPaidSubscription("9876543210", time.Hour)
	sub.InviteLink = "https://t.me/+used"
	sub.InviteConsumed = true
	require.NoError(t, repo.Create(ctx, sub))

	tg.On("CreateInviteLink", mock.Anything, 48*time.Hour).Return("https://t.me/+second", nil)

	link, err := svc.Issue(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+second", link)

	got, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, got.InviteConsumed)
}

func TestInviteIssuePlatformFailureLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo()
	tg := new(MockTelegramService)
	svc := NewInviteService(repo, tg, 48*time.Hour, zaptest.NewLogger(t))

	sub := newPaidSubscription("9876543210", time.Hour)
	require.NoError(t, repo.Create(ctx, sub))

	tg.On("CreateInviteLink", mock.Anything, 48*time.Hour).
		Return("", common.ErrExternalUnavailable)

	_, err := svc.Issue(ctx, sub.ID)
	assert.ErrorIs(t, err, common.ErrExternalUnavailable)

	got, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteUnset, got.InviteLink)
}

func TestInviteIssueUnknownSubscription(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo()
	tg := new(MockTelegramService)
	svc := NewInviteService(repo, tg, 48*time.Hour, zaptest.NewLogger(t))

	_, err := svc.Issue(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}
