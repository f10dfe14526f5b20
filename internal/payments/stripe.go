package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pixelcanvas/internal/service"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway talks to Stripe for checkout, billing portal and webhook verification.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		sc:            client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, uid, email string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("uid", uid)

	c, err := g.sc.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(req.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(req.Mode),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("uid", req.UID)
	params.AddMetadata("mode", req.Mode)
	params.AddMetadata("priceId", req.PriceID)

	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &service.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.sc.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

// ParseWebhook verifies the signature and extracts uid, customer and price ids.
func (g *StripeGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*service.PaymentEvent, error) {
	if g.webhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET not set")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}

	ev := &service.PaymentEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return ev, nil
	}

	switch ev.Type {
	case service.EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		ev.UID = cs.Metadata["uid"]
		if cs.Customer != nil {
			ev.CustomerID = cs.Customer.ID
		}
		ev.PriceIDs = g.checkoutPrices(ctx, &cs)

	case service.EventInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		if inv.Lines != nil {
			for _, li := range inv.Lines.Data {
				if li.Price != nil {
					ev.PriceIDs = append(ev.PriceIDs, li.Price.ID)
				}
			}
		}

	case service.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
	}
	return ev, nil
}

// checkoutPrices prefers the line items stored by Stripe and falls back to the metadata set at creation.
func (g *StripeGateway) checkoutPrices(ctx context.Context, cs *stripe.CheckoutSession) []string {
	var prices []string
	if cs.LineItems != nil {
		for _, li := range cs.LineItems.Data {
			if li.Price != nil {
				prices = append(prices, li.Price.ID)
			}
		}
	}

	if len(prices) == 0 && cs.ID != "" {
		params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(cs.ID)}
		params.Context = ctx
		iter := g.sc.CheckoutSessions.ListLineItems(params)
		for iter.Next() {
			if li := iter.LineItem(); li.Price != nil {
				prices = append(prices, li.Price.ID)
			}
		}
		if err := iter.Err(); err != nil {
			prices = nil
		}
	}

	if len(prices) == 0 {
		if p := cs.Metadata["priceId"]; p != "" {
			prices = append(prices, p)
		}
	}
	return prices
}
