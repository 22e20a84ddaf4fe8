package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"channelgate/internal/middleware"

	"github.com/labstack/echo/v4"
)

// AuthHandlers issues admin tokens for the dashboard API.
type AuthHandlers struct {
	adminPassword string
	jwtSecret     string
}

func NewAuthHandlers(adminPassword, jwtSecret string) *AuthHandlers {
	return &AuthHandlers{
		adminPassword: adminPassword,
		jwtSecret:     jwtSecret,
	}
}

// Login handles POST /api/admin/login
func (h *AuthHandlers) Login(c echo.Context) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := middleware.IssueAdminToken(h.jwtSecret, 24*time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue token")
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
