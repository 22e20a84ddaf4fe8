package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"channelgate/internal/common"
	"channelgate/internal/models"
	"channelgate/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// User-facing bot replies.
const (
	msgInvalidToken = "Invalid link. Please register again on the website."
	msgUnknownToken = "Subscription not found. Please register on the website."
	msgSessionTaken = "Verification for this subscription was started from a different Telegram account. Please use that account, or register again."
	msgSessionLost  = "Session expired or user not found. Please click the registration link again."
	msgIssueFailed  = "Verification succeeded, but your invite link could not be created right now. Please share your contact again in a few minutes."
)

// CorrelatorService consumes platform events one at a time and drives each
// subscription's lifecycle. Every handler is idempotent: redelivered events
// settle into the same record state, which is what makes the process-local
// polling cursor safe.
type CorrelatorService struct {
	repo     repositories.SubscriptionRepository
	telegram TelegramService
	inviter  InviteService
	logger   *zap.Logger
}

func NewCorrelatorService(repo repositories.SubscriptionRepository, telegram TelegramService, inviter InviteService, logger *zap.Logger) *CorrelatorService {
	return &CorrelatorService{
		repo:     repo,
		telegram: telegram,
		inviter:  inviter,
		logger:   logger,
	}
}

// HandleUpdate dispatches one platform event. Errors are returned for the
// caller to log; they never indicate that processing of later events should
// stop.
func (s *CorrelatorService) HandleUpdate(ctx context.Context, update models.Update) error {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.Contact != nil {
			return s.handleContactShare(ctx, msg)
		}
		if strings.HasPrefix(msg.Text, "/start") {
			return s.handleSessionStart(ctx, msg)
		}
		return nil
	case update.ChatMember != nil:
		return s.handleMembershipChange(ctx, update.ChatMember)
	default:
		return nil
	}
}

// handleSessionStart binds the chat session to the subscription named by the
// /start token and prompts for contact verification.
func (s *CorrelatorService) handleSessionStart(ctx context.Context, msg *models.TelegramMessage) error {
	token := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/start"))
	chatID := msg.Chat.ID

	if token == "" {
		if err := s.telegram.SendMessage(ctx, chatID, msgInvalidToken); err != nil {
			return err
		}
		return fmt.Errorf("session start without token: %w", common.ErrMalformed)
	}

	subID, err := uuid.Parse(token)
	if err != nil {
		if err := s.telegram.SendMessage(ctx, chatID, msgInvalidToken); err != nil {
			return err
		}
		return fmt.Errorf("session start token %q: %w", token, common.ErrMalformed)
	}

	sessionKey := strconv.FormatInt(chatID, 10)

	_, err = s.repo.UpdateAtomic(ctx, subID, func(rec *models.Subscription) error {
		if rec.DerivedState() == models.StateExpired {
			return fmt.Errorf("subscription %s expired: %w", subID, common.ErrNotFound)
		}
		if rec.SessionKey != nil && *rec.SessionKey != sessionKey {
			return fmt.Errorf("subscription %s bound to another session: %w", subID, common.ErrConflict)
		}
		rec.SessionKey = &sessionKey
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			if sendErr := s.telegram.SendMessage(ctx, chatID, msgUnknownToken); sendErr != nil {
				return sendErr
			}
		case errors.Is(err, common.ErrConflict):
			if sendErr := s.telegram.SendMessage(ctx, chatID, msgSessionTaken); sendErr != nil {
				return sendErr
			}
		}
		return err
	}

	sub, err := s.repo.GetByID(ctx, subID)
	if err != nil {
		return err
	}

	welcome := fmt.Sprintf(
		"Welcome %s!\n\nTo prevent unauthorized access, please verify your phone number by clicking the button below.",
		sub.FullName)
	if err := s.telegram.SendContactPrompt(ctx, chatID, welcome); err != nil {
		// Session stays bound; a redelivered /start re-prompts.
		return err
	}

	s.logger.Info("verification session started",
		zap.String("subscription_id", subID.String()),
		zap.String("session_key", sessionKey))
	return nil
}

// handleContactShare runs the phone match for the session's subscription and
// issues the invite on success.
func (s *CorrelatorService) handleContactShare(ctx context.Context, msg *models.TelegramMessage) error {
	chatID := msg.Chat.ID
	sessionKey := strconv.FormatInt(chatID, 10)

	sub, err := s.repo.GetBySessionKey(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.telegram.SendMessage(ctx, chatID, msgSessionLost)
		}
		return err
	}

	switch sub.DerivedState() {
	case models.StateExpired:
		return s.telegram.SendMessage(ctx, chatID, msgUnknownToken)
	case models.StateActive:
		// Already joined; nothing left to verify.
		return nil
	case models.StateVerified:
		// Invite already issued and still live: resend, never reissue.
		return s.telegram.SendMessage(ctx, chatID,
			fmt.Sprintf("✅ You are already verified!\n\nHere is your unique link to join the channel:\n%s", sub.InviteLink))
	}

	if !PhonesMatch(sub.Phone, msg.Contact.PhoneNumber) {
		diagnostic := fmt.Sprintf(
			"❌ Verification Failed.\n\nRegistered Phone: %s\nTelegram Phone: %s\n\nPlease share the contact of the Telegram account linked to your registered mobile number.",
			MaskedTail(sub.Phone), MaskedTail(msg.Contact.PhoneNumber))
		s.logger.Info("phone verification mismatch",
			zap.String("subscription_id", sub.ID.String()))
		return s.telegram.SendMessage(ctx, chatID, diagnostic)
	}

	link, err := s.inviter.Issue(ctx, sub.ID)
	if err != nil {
		// State must not advance on issuance failure; the user retries by
		// sharing the contact again.
		if sendErr := s.telegram.SendMessage(ctx, chatID, msgIssueFailed); sendErr != nil {
			s.logger.Warn("failed to notify user of issuance failure", zap.Error(sendErr))
		}
		return err
	}

	return s.telegram.SendMessage(ctx, chatID,
		fmt.Sprintf("✅ Verification Successful!\n\nHere is your unique link to join the channel:\n%s", link))
}

// handleMembershipChange correlates a channel join back to the subscription
// whose invite link was used.
func (s *CorrelatorService) handleMembershipChange(ctx context.Context, cm *models.ChatMemberUpdated) error {
	if cm.NewChatMember.Status != "member" {
		return nil
	}

	memberID := strconv.FormatInt(cm.NewChatMember.User.ID, 10)

	if cm.InviteLink == nil || cm.InviteLink.InviteLink == "" {
		s.logger.Info("member joined without an invite link; cannot correlate",
			zap.String("member_id", memberID))
		return nil
	}
	link := cm.InviteLink.InviteLink

	sub, err := s.repo.GetByLiveInviteLink(ctx, link)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Unknown or already-consumed link; the information needed to
			// correlate is gone, so this is a terminal no-op.
			s.logger.Warn("orphaned join: no live subscription for invite link",
				zap.String("member_id", memberID))
			return nil
		}
		return err
	}

	joinedAfterExpiry := false
	_, err = s.repo.UpdateAtomic(ctx, sub.ID, func(rec *models.Subscription) error {
		if rec.InviteConsumed || rec.InviteLink != link {
			return nil // correlated by a concurrent delivery
		}
		rec.InviteConsumed = true
		if rec.PaymentState != models.PaymentPaid {
			// The paid window closed between issuance and join; the member id
			// may not be bound to a non-paid record.
			joinedAfterExpiry = true
			return nil
		}
		rec.ChannelMemberID = &memberID
		return nil
	})
	if err != nil {
		return err
	}

	if joinedAfterExpiry {
		s.logger.Warn("member joined after subscription expiry; manual removal may be required",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("member_id", memberID))
		return nil
	}

	s.logger.Info("channel member correlated",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("member_id", memberID))
	return nil
}
