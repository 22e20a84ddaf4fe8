package services

import (
	"context"
	"fmt"
	"time"

	"channelgate/internal/caching"
	"channelgate/internal/common"
	"channelgate/internal/models"
	"channelgate/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanConfig represents a subscription plan offered by the storefront.
type PlanConfig struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
}

// Predefined plans
var availablePlans = map[string]PlanConfig{
	"trial": {
		ID:              "trial",
		Name:            "Trial Access",
		Price:           99.0,
		DurationMinutes: 5,
	},
	"monthly": {
		ID:              "monthly",
		Name:            "Monthly Access",
		Price:           999.0,
		DurationMinutes: 30 * 24 * 60,
	},
	"quarterly": {
		ID:              "quarterly",
		Name:            "Quarterly Access",
		Price:           2499.0,
		DurationMinutes: 90 * 24 * 60,
	},
}

// RegistrationRequest carries the storefront form.
type RegistrationRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	PANCard  string `json:"pan_card"`
	GSTIN    string `json:"gstin,omitempty"`
	State    string `json:"state"`
	DOB      string `json:"dob"`
	PlanID   string `json:"plan_id"`
}

// RegistrationResult is returned to the storefront: the new subscription id
// and the bot deep link that starts phone verification.
type RegistrationResult struct {
	SubscriptionID   uuid.UUID `json:"subscription_id"`
	VerificationLink string    `json:"verification_link"`
}

// RegistrationService creates paid subscriptions and serves the admin listing.
type RegistrationService interface {
	Register(ctx context.Context, req *RegistrationRequest) (*RegistrationResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	List(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
	Plans() map[string]PlanConfig
}

type registrationService struct {
	repo     repositories.SubscriptionRepository
	telegram TelegramService
	cache    caching.CacheService
	logger   *zap.Logger
}

const listCacheTTL = 30 * time.Second

func NewRegistrationService(repo repositories.SubscriptionRepository, telegram TelegramService, cache caching.CacheService, logger *zap.Logger) RegistrationService {
	return &registrationService{
		repo:     repo,
		telegram: telegram,
		cache:    cache,
		logger:   logger,
	}
}

func validateRegistration(req *RegistrationRequest) (time.Time, error) {
	if err := common.ValidateRequiredString(req.FullName, "full_name"); err != nil {
		return time.Time{}, err
	}
	if err := common.ValidateEmail(req.Email, "email"); err != nil {
		return time.Time{}, err
	}
	if err := common.ValidateRequiredString(req.Phone, "phone"); err != nil {
		return time.Time{}, err
	}
	if err := common.ValidatePAN(req.PANCard, "pan_card"); err != nil {
		return time.Time{}, err
	}
	if err := common.ValidateGSTIN(req.GSTIN, "gstin"); err != nil {
		return time.Time{}, err
	}
	if err := common.ValidateRequiredString(req.State, "state"); err != nil {
		return time.Time{}, err
	}
	return common.ValidateDateFormat(req.DOB, "dob")
}

// Register creates a subscription with payment bypassed: every stored record
// starts Paid with windowEnd = now + plan duration. The verification deep
// link requires the bot identity, so it is resolved before anything persists.
func (s *registrationService) Register(ctx context.Context, req *RegistrationRequest) (*RegistrationResult, error) {
	dob, err := validateRegistration(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformed, err)
	}

	plan, exists := availablePlans[req.PlanID]
	if !exists {
		return nil, fmt.Errorf("%w: invalid plan: %s", common.ErrMalformed, req.PlanID)
	}

	botUsername, err := s.telegram.BotUsername(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &models.Subscription{
		ID:                  uuid.New(),
		FullName:            req.FullName,
		Email:               req.Email,
		Phone:               req.Phone,
		PANCard:             req.PANCard,
		State:               req.State,
		DOB:                 dob,
		PlanName:            plan.Name,
		PlanPrice:           plan.Price,
		PlanDurationMinutes: plan.DurationMinutes,
		AmountPaid:          plan.Price,
		PaymentState:        models.PaymentPaid,
		WindowStart:         now,
		WindowEnd:           now.Add(time.Duration(plan.DurationMinutes) * time.Minute),
		InviteLink:          models.InviteUnset,
	}
	if req.GSTIN != "" {
		sub.GSTIN = &req.GSTIN
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	if err := s.cache.InvalidateSubscriptionLists(ctx); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}

	s.logger.Info("subscription registered",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", plan.ID),
		zap.Time("window_end", sub.WindowEnd))

	return &RegistrationResult{
		SubscriptionID:   sub.ID,
		VerificationLink: fmt.Sprintf("https://t.me/%s?start=%s", botUsername, sub.ID),
	}, nil
}

func (s *registrationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns subscriptions in creation order for the admin dashboard,
// served from cache when fresh.
func (s *registrationService) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)

	if cached, err := s.cache.GetSubscriptionList(ctx, limit, offset); err == nil && cached != nil {
		return cached, nil
	}

	subs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSubscriptionList(ctx, limit, offset, subs, listCacheTTL); err != nil {
		s.logger.Warn("failed to cache listing", zap.Error(err))
	}
	return subs, nil
}

// Plans returns a copy of the plan catalogue.
func (s *registrationService) Plans() map[string]PlanConfig {
	result := make(map[string]PlanConfig, len(availablePlans))
	for k, v := range availablePlans {
		result[k] = v
	}
	return result
}
