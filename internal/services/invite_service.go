package services

import (
	"context"
	"fmt"
	"time"

	"channelgate/internal/common"
	"channelgate/internal/models"
	"channelgate/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InviteService issues single-use, time-boxed invite links and binds them to
// subscriptions. The validity window bounds how long a user has to join after
// verifying; it is independent of the subscription's paid-access window.
type InviteService interface {
	Issue(ctx context.Context, subscriptionID uuid.UUID) (string, error)
}

type inviteService struct {
	repo     repositories.SubscriptionRepository
	telegram TelegramService
	validity time.Duration
	logger   *zap.Logger
}

func NewInviteService(repo repositories.SubscriptionRepository, telegram TelegramService, validity time.Duration, logger *zap.Logger) InviteService {
	return &inviteService{
		repo:     repo,
		telegram: telegram,
		validity: validity,
		logger:   logger,
	}
}

// Issue creates a single-use link and records it on the subscription. On
// platform failure the error is surfaced and the record is left untouched;
// there is no fallback link.
func (s *inviteService) Issue(ctx context.Context, subscriptionID uuid.UUID) (string, error) {
	sub, err := s.repo.GetByID(ctx, subscriptionID)
	if err != nil {
		return "", err
	}
	if sub.HasLiveInvite() {
		return "", fmt.Errorf("subscription %s already holds a live invite: %w", subscriptionID, common.ErrConflict)
	}

	link, err := s.telegram.CreateInviteLink(ctx, s.validity)
	if err != nil {
		return "", err
	}

	_, err = s.repo.UpdateAtomic(ctx, subscriptionID, func(rec *models.Subscription) error {
		if rec.HasLiveInvite() {
			return fmt.Errorf("subscription %s already holds a live invite: %w", subscriptionID, common.ErrConflict)
		}
		rec.InviteLink = link
		rec.InviteConsumed = false
		return nil
	})
	if err != nil {
		// The platform link stays allocated but unbound; it expires on its own.
		s.logger.Warn("discarding invite link after bind failure",
			zap.String("subscription_id", subscriptionID.String()),
			zap.Error(err))
		return "", err
	}

	s.logger.Info("invite link issued",
		zap.String("subscription_id", subscriptionID.String()))
	return link, nil
}
