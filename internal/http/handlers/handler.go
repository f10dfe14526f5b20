package handlers

import (
	"errors"
	"net/http"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/http/middleware"
	"pixelcanvas/internal/logger"
	"pixelcanvas/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler serves the JSON API on top of the services.
type Handler struct {
	Placement   *service.PlacementService
	Pixels      service.PixelStore
	Leaderboard *service.LeaderboardService
	Users       *service.UserService
	Chat        *service.ChatService
	Payments    *service.PaymentService
	Admin       *service.AdminService

	DevMode    bool
	AppVersion string
	Prices     service.PriceCatalog
}

// callerUID returns the authenticated uid set by middleware.JWT.
func callerUID(c *gin.Context) (string, bool) {
	uid := middleware.UID(c)
	return uid, uid != ""
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		cd *domain.CooldownError
		ve *domain.ValidationError
	)
	switch {
	case errors.As(err, &cd):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrColorLocked), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotLinked):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": msg}. Unexpected errors are logged and hidden from the client.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Errorw(fallback, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": publicMessage(err)})
}

func publicMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrForbidden):
		return "not allowed"
	}
	return err.Error()
}
