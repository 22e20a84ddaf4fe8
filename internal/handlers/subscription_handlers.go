package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"channelgate/internal/caching"
	"channelgate/internal/common"
	"channelgate/internal/models"
	"channelgate/internal/services"

	"github.com/labstack/echo/v4"
)

// SubscriptionHandlers handles HTTP requests for registration and the admin
// dashboard listing.
type SubscriptionHandlers struct {
	registrationService services.RegistrationService
	cacheService        caching.CacheService
}

const (
	registerRateLimit  = 5
	registerRateWindow = time.Minute
)

// NewSubscriptionHandlers creates a new subscription handlers instance
func NewSubscriptionHandlers(registrationService services.RegistrationService, cacheService caching.CacheService) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		registrationService: registrationService,
		cacheService:        cacheService,
	}
}

// Register handles POST /api/register
func (h *SubscriptionHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	limited, err := h.cacheService.IsRateLimited(ctx, c.RealIP(), registerRateLimit, registerRateWindow)
	if err == nil && limited {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many registration attempts, try again later")
	}
	_ = h.cacheService.IncrementRateLimit(ctx, c.RealIP(), registerRateWindow)

	var req services.RegistrationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.registrationService.Register(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMalformed):
			return common.SendClientError(c, err.Error())
		case errors.Is(err, common.ErrExternalUnavailable):
			return c.JSON(http.StatusServiceUnavailable,
				common.CreateErrorResponse("EXTERNAL_UNAVAILABLE", "Verification bot is not reachable, try again later", nil))
		default:
			return common.SendServerError(c, "Registration failed")
		}
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Registration successful",
		"link":    result.VerificationLink,
		"id":      result.SubscriptionID,
	})
}

// ListPlans handles GET /api/plans
func (h *SubscriptionHandlers) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans": h.registrationService.Plans(),
	})
}

// subscriptionView decorates a record with its derived lifecycle state for
// dashboard display.
type subscriptionView struct {
	*models.Subscription
	DerivedState models.State `json:"derived_state"`
}

// ListSubscriptions handles GET /api/admin/subscriptions
func (h *SubscriptionHandlers) ListSubscriptions(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	offset := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil && o >= 0 {
			offset = o
		}
	}

	subs, err := h.registrationService.List(ctx, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list subscriptions")
	}

	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, subscriptionView{
			Subscription: sub,
			DerivedState: sub.DerivedState(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": views,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetSubscription handles GET /api/admin/subscriptions/:id
func (h *SubscriptionHandlers) GetSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	sub, err := h.registrationService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return common.SendServerError(c, "Failed to load subscription")
	}

	return c.JSON(http.StatusOK, subscriptionView{
		Subscription: sub,
		DerivedState: sub.DerivedState(),
	})
}
