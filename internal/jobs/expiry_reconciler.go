package jobs

import (
	"context"
	"time"

	"channelgate/internal/models"
	"channelgate/internal/repositories"
	"channelgate/internal/services"

	"go.uber.org/zap"
)

// ExpiryReconciler demotes subscriptions whose paid window has elapsed and
// revokes their channel access. The bookkeeping write and the platform side
// effect are deliberately decoupled: a record always becomes Expired even
// when the revoke call fails.
type ExpiryReconciler struct {
	repo     repositories.SubscriptionRepository
	telegram services.TelegramService
	logger   *zap.Logger
}

func NewExpiryReconciler(repo repositories.SubscriptionRepository, telegram services.TelegramService, logger *zap.Logger) *ExpiryReconciler {
	return &ExpiryReconciler{
		repo:     repo,
		telegram: telegram,
		logger:   logger,
	}
}

// Sweep runs one expiry pass. Per-record failures are logged and never stop
// the rest of the sweep; the next tick is the retry mechanism for listing
// failures, and revoke failures are terminal for the record.
func (r *ExpiryReconciler) Sweep(ctx context.Context) error {
	now := time.Now()
	expired, err := r.repo.ListExpiredCandidates(ctx, now)
	if err != nil {
		r.logger.Error("expiry sweep: listing failed", zap.Error(err))
		return err
	}

	if len(expired) > 0 {
		r.logger.Info("expiry sweep found lapsed subscriptions", zap.Int("count", len(expired)))
	}

	for _, candidate := range expired {
		var memberID string
		updated, err := r.repo.UpdateAtomic(ctx, candidate.ID, func(rec *models.Subscription) error {
			if rec.PaymentState != models.PaymentPaid || rec.WindowEnd.After(now) {
				return nil // already handled by a concurrent sweep
			}
			rec.PaymentState = models.PaymentExpired
			if rec.ChannelMemberID != nil {
				memberID = *rec.ChannelMemberID
			}
			return nil
		})
		if err != nil {
			r.logger.Error("expiry sweep: failed to expire subscription",
				zap.String("subscription_id", candidate.ID.String()),
				zap.Error(err))
			continue
		}

		r.logger.Info("subscription expired",
			zap.String("subscription_id", updated.ID.String()),
			zap.String("plan", updated.PlanName))

		if memberID == "" {
			continue // never joined; nothing to revoke
		}

		if err := r.telegram.RevokeChatMember(ctx, memberID); err != nil {
			// The record stays Expired; this member will not be retried by a
			// later sweep and needs operator intervention.
			r.logger.Error("expiry sweep: revoke failed",
				zap.String("subscription_id", updated.ID.String()),
				zap.String("member_id", memberID),
				zap.Error(err))
			continue
		}

		if _, err := r.repo.UpdateAtomic(ctx, updated.ID, func(rec *models.Subscription) error {
			rec.ChannelMemberID = nil
			return nil
		}); err != nil {
			r.logger.Warn("expiry sweep: failed to clear member binding after revoke",
				zap.String("subscription_id", updated.ID.String()),
				zap.Error(err))
			continue
		}

		r.logger.Info("channel access revoked",
			zap.String("subscription_id", updated.ID.String()),
			zap.String("member_id", memberID))
	}

	return nil
}
