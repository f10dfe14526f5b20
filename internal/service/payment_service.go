package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/logger"

	"github.com/jonboulle/clockwork"
)

// Webhook event types acted upon.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

const (
	CheckoutModePayment      = "payment"
	CheckoutModeSubscription = "subscription"

	// PackPeriod is how long one payment of the monthly "all colors" plan lasts.
	PackPeriod = 28 * 24 * time.Hour
	// PixelPackSize is the number of free pixels one pixel pack adds.
	PixelPackSize = 100
)

var (
	ErrPaymentsDisabled = errors.New("payments are not configured")
	ErrNotLinked        = errors.New("User not linked to Stripe")
)

type CheckoutRequest struct {
	UID        string
	CustomerID string
	PriceID    string
	Mode       string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentEvent is a verified webhook event reduced to what entitlements need.
type PaymentEvent struct {
	ID         string
	Type       string
	UID        string
	CustomerID string
	PriceIDs   []string
}

// PaymentGateway is the payment processor. payments.StripeGateway implements it.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, uid, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*PaymentEvent, error)
}

// PriceCatalog maps processor price ids to products.
type PriceCatalog struct {
	Colors60       string
	Colors120      string
	ColorsAllMonth string
	Pixels100      string
}

// Entitlement returns the grant bought with priceID, or false for an unknown price.
func (c PriceCatalog) Entitlement(priceID string, now time.Time) (domain.Entitlement, bool) {
	if priceID == "" {
		return domain.Entitlement{}, false
	}
	switch priceID {
	case c.Colors60:
		return domain.Entitlement{ColorPack: domain.ColorPackPlus60}, true
	case c.Colors120:
		return domain.Entitlement{ColorPack: domain.ColorPackPlus120}, true
	case c.ColorsAllMonth:
		exp := now.Add(PackPeriod)
		return domain.Entitlement{ColorPack: domain.ColorPackAll, ColorPackExpiry: &exp}, true
	case c.Pixels100:
		return domain.Entitlement{Credits: map[domain.BalanceSource]int64{domain.SourceFreePixels: PixelPackSize}}, true
	}
	return domain.Entitlement{}, false
}

type PaymentService struct {
	users   UserStore
	gateway PaymentGateway
	audit   *AuditService
	prices  PriceCatalog
	clock   clockwork.Clock
}

// NewPaymentService builds the service. A nil gateway disables checkout and webhooks.
func NewPaymentService(users UserStore, gateway PaymentGateway, audit *AuditService, prices PriceCatalog, clock clockwork.Clock) *PaymentService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PaymentService{users: users, gateway: gateway, audit: audit, prices: prices, clock: clock}
}

func (s *PaymentService) Enabled() bool {
	return s.gateway != nil
}

// CreateCheckout opens a checkout session for the caller, creating the processor customer on first use.
func (s *PaymentService) CreateCheckout(ctx context.Context, id Identity, priceID, mode, successURL, cancelURL string) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if priceID == "" {
		return nil, domain.NewValidationError("priceId", "is required")
	}
	if strings.EqualFold(mode, CheckoutModePayment) {
		mode = CheckoutModePayment
	} else {
		mode = CheckoutModeSubscription
	}

	u, err := s.users.GetByUID(ctx, id.UID)
	if err != nil {
		return nil, err
	}

	customerID := u.StripeCustomerID
	if customerID == "" {
		email := id.Email
		if email == "" {
			email = u.Email
		}
		customerID, err = s.gateway.CreateCustomer(ctx, u.UID, email)
		if err != nil {
			return nil, err
		}
		if err := s.users.SetStripeCustomerID(ctx, u.UID, customerID); err != nil {
			return nil, err
		}
	}

	return s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		UID:        u.UID,
		CustomerID: customerID,
		PriceID:    priceID,
		Mode:       mode,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
}

// CustomerPortal returns a billing portal link for a linked user.
func (s *PaymentService) CustomerPortal(ctx context.Context, uid, returnURL string) (string, error) {
	if s.gateway == nil {
		return "", ErrPaymentsDisabled
	}
	u, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", ErrNotLinked
		}
		return "", err
	}
	if u.StripeCustomerID == "" {
		return "", ErrNotLinked
	}
	return s.gateway.CreatePortalSession(ctx, u.StripeCustomerID, returnURL)
}

// HandleWebhook verifies payload and applies the entitlement it carries.
// Signature failures are returned as *domain.ValidationError.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrPaymentsDisabled
	}
	ev, err := s.gateway.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return domain.NewValidationError("signature", err.Error())
	}
	return s.ApplyEvent(ctx, ev)
}

// ApplyEvent applies an already verified event.
func (s *PaymentService) ApplyEvent(ctx context.Context, ev *PaymentEvent) error {
	now := s.clock.Now()

	switch ev.Type {
	case EventCheckoutCompleted:
		if ev.UID == "" {
			logger.Warn("checkout without uid metadata", "event", ev.ID)
			return nil
		}
		ent := domain.Entitlement{PurchasedAt: &now}
		for _, price := range ev.PriceIDs {
			if grant, ok := s.prices.Entitlement(price, now); ok {
				ent = mergeEntitlements(ent, grant)
			}
		}
		return s.grant(ctx, ev.UID, domain.AuditActionEntitlementGrant, ent, ev)

	case EventInvoicePaid:
		u, err := s.userByCustomer(ctx, ev)
		if u == nil {
			return err
		}
		if u.ColorPack != domain.ColorPackAll && !slices.Contains(ev.PriceIDs, s.prices.ColorsAllMonth) {
			return nil
		}
		exp := now.Add(PackPeriod)
		if u.ColorPackExpiry != nil && u.ColorPackExpiry.After(exp) {
			exp = *u.ColorPackExpiry
		}
		ent := domain.Entitlement{ColorPack: domain.ColorPackAll, ColorPackExpiry: &exp, PurchasedAt: &now}
		return s.grant(ctx, u.UID, domain.AuditActionSubscriptionRenew, ent, ev)

	case EventSubscriptionDeleted:
		u, err := s.userByCustomer(ctx, ev)
		if u == nil {
			return err
		}
		ent := domain.Entitlement{ColorPack: domain.ColorPackFree, ClearExpiry: true}
		return s.grant(ctx, u.UID, domain.AuditActionSubscriptionEnd, ent, ev)

	default:
		logger.Debug("unhandled payment event", "type", ev.Type, "event", ev.ID)
		return nil
	}
}

// userByCustomer returns nil without error when no user is linked to the event's customer.
func (s *PaymentService) userByCustomer(ctx context.Context, ev *PaymentEvent) (*domain.User, error) {
	if ev.CustomerID == "" {
		return nil, nil
	}
	u, err := s.users.GetByStripeCustomerID(ctx, ev.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			logger.Warn("payment event for unknown customer", "type", ev.Type, "customer", ev.CustomerID)
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (s *PaymentService) grant(ctx context.Context, uid, action string, ent domain.Entitlement, ev *PaymentEvent) error {
	u, err := s.users.ApplyEntitlement(ctx, uid, ent)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			logger.Warn("entitlement for unknown user", "uid", uid, "event", ev.ID)
			return nil
		}
		return err
	}

	if s.audit != nil {
		s.audit.LogEntitlement(ctx, uid, action, ent, map[string]any{"event_id": ev.ID, "event_type": ev.Type})
	}
	logger.Info("entitlement applied", "uid", uid, "action", action, "color_pack", u.ColorPack, "free_pixels", u.FreePixels)
	return nil
}

func mergeEntitlements(a, b domain.Entitlement) domain.Entitlement {
	if b.ColorPack != "" {
		a.ColorPack = b.ColorPack
		a.ColorPackExpiry = b.ColorPackExpiry
	}
	if len(b.Credits) > 0 {
		if a.Credits == nil {
			a.Credits = make(map[domain.BalanceSource]int64)
		}
		for src, n := range b.Credits {
			a.Credits[src] += n
		}
	}
	return a
}
