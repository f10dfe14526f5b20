package handlers

import (
	"errors"
	"io"
	"net/http"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/http/middleware"
	"pixelcanvas/internal/logger"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

type checkoutRequest struct {
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
	Mode       string `json:"mode"`
}

// CreateCheckoutSession opens a checkout session for the caller.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing auth token"})
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priceId is required"})
		return
	}

	origin := c.GetHeader("Origin")
	if req.SuccessURL == "" {
		req.SuccessURL = origin + "/success"
	}
	if req.CancelURL == "" {
		req.CancelURL = origin + "/cancel"
	}

	sess, err := h.Payments.CreateCheckout(c.Request.Context(), id, req.PriceID, req.Mode, req.SuccessURL, req.CancelURL)
	if err != nil {
		respondError(c, err, "checkout failed")
		return
	}
	c.JSON(http.StatusOK, sess)
}

// CustomerPortal returns a billing portal link.
func (h *Handler) CustomerPortal(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing auth token"})
		return
	}
	returnURL := c.GetHeader("Origin")
	if returnURL == "" {
		returnURL = "/"
	}

	url, err := h.Payments.CustomerPortal(c.Request.Context(), uid, returnURL)
	if err != nil {
		respondError(c, err, "portal failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// StripeWebhook verifies the raw body against the Stripe-Signature header and applies the event.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: unreadable body")
		return
	}

	err = h.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			logger.Warn("stripe webhook rejected", "error", err)
			c.String(http.StatusBadRequest, "Webhook Error: "+ve.Message)
			return
		}
		if statusFor(err) == http.StatusServiceUnavailable {
			c.String(http.StatusServiceUnavailable, "Webhook Error: payments disabled")
			return
		}
		logger.Error("stripe webhook handler failed", "error", err)
		c.String(http.StatusInternalServerError, "Webhook handler failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
