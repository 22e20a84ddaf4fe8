package jobs

import (
	"context"
	"sync"
	"time"

	"channelgate/internal/common"
	"channelgate/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*models.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uuid.UUID]*models.Subscription)}
}

func cloneSub(sub *models.Subscription) *models.Subscription {
	copied := *sub
	if sub.SessionKey != nil {
		v := *sub.SessionKey
		copied.SessionKey = &v
	}
	if sub.ChannelMemberID != nil {
		v := *sub.ChannelMemberID
		copied.ChannelMemberID = &v
	}
	if sub.GSTIN != nil {
		v := *sub.GSTIN
		copied.GSTIN = &v
	}
	return &copied
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = cloneSub(sub)
	return nil
}

func (f *fakeSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneSub(sub), nil
}

func (f *fakeSubscriptionRepo) GetBySessionKey(ctx context.Context, sessionKey string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.SessionKey != nil && *sub.SessionKey == sessionKey {
			return cloneSub(sub), nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeSubscriptionRepo) GetByLiveInviteLink(ctx context.Context, link string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.InviteLink == link && !sub.InviteConsumed {
			return cloneSub(sub), nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeSubscriptionRepo) ListExpiredCandidates(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Subscription
	for _, sub := range f.subs {
		if sub.PaymentState == models.PaymentPaid && sub.WindowEnd.Before(now) {
			out = append(out, cloneSub(sub))
		}
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Subscription
	for _, sub := range f.subs {
		out = append(out, cloneSub(sub))
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) UpdateAtomic(ctx context.Context, id uuid.UUID, mutate func(*models.Subscription) error) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	working := cloneSub(sub)
	if err := mutate(working); err != nil {
		return nil, err
	}
	f.subs[id] = working
	return cloneSub(working), nil
}

type mockTelegramService struct {
	mock.Mock
}

func (m *mockTelegramService) BotUsername(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockTelegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

func (m *mockTelegramService) SendContactPrompt(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

func (m *mockTelegramService) CreateInviteLink(ctx context.Context, validity time.Duration) (string, error) {
	args := m.Called(ctx, validity)
	return args.String(0), args.Error(1)
}

func (m *mockTelegramService) RevokeChatMember(ctx context.Context, memberID string) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

func (m *mockTelegramService) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]models.Update, error) {
	args := m.Called(ctx, offset, timeoutSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Update), args.Error(1)
}
