package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/repository"

	"github.com/jonboulle/clockwork"
)

type fakeGateway struct {
	customers int
	lastReq   CheckoutRequest
	event     *PaymentEvent
	parseErr  error
}

func (g *fakeGateway) CreateCustomer(_ context.Context, uid, _ string) (string, error) {
	g.customers++
	return "cus_" + uid, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.lastReq = req
	return &CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	return "https://portal.example/" + customerID, nil
}

func (g *fakeGateway) ParseWebhook(context.Context, []byte, string) (*PaymentEvent, error) {
	return g.event, g.parseErr
}

var testPrices = PriceCatalog{
	Colors60:       "price_60",
	Colors120:      "price_120",
	ColorsAllMonth: "price_all",
	Pixels100:      "price_px",
}

func newPaymentFixture(t *testing.T) (*PaymentService, *repository.MemoryStore, *fakeGateway, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	store := repository.NewMemoryStore(clock)
	if _, _, err := store.CreateIfMissing(context.Background(), &domain.User{UID: "u", FreePixels: 5, ColorPack: domain.ColorPackFree}); err != nil {
		t.Fatal(err)
	}
	gw := &fakeGateway{}
	return NewPaymentService(store, gw, NewAuditService(store), testPrices, clock), store, gw, clock
}

func TestCreateCheckoutLinksCustomerOnce(t *testing.T) {
	svc, store, gw, _ := newPaymentFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateCheckout(ctx, Identity{UID: "u"}, "", "", "", ""); err == nil {
		t.Fatalf("missing price accepted")
	}

	for i := 0; i < 2; i++ {
		s, err := svc.CreateCheckout(ctx, Identity{UID: "u"}, "price_px", "PAYMENT", "s", "c")
		if err != nil {
			t.Fatal(err)
		}
		if s.URL == "" {
			t.Fatalf("no url")
		}
	}
	if gw.customers != 1 {
		t.Fatalf("customers created = %d; want 1", gw.customers)
	}
	if gw.lastReq.Mode != CheckoutModePayment || gw.lastReq.CustomerID != "cus_u" || gw.lastReq.UID != "u" {
		t.Fatalf("request = %+v", gw.lastReq)
	}
	u, _ := store.GetByUID(ctx, "u")
	if u.StripeCustomerID != "cus_u" {
		t.Fatalf("customer id not stored")
	}

	_, _ = svc.CreateCheckout(ctx, Identity{UID: "u"}, "price_all", "", "s", "c")
	if gw.lastReq.Mode != CheckoutModeSubscription {
		t.Fatalf("default mode = %q", gw.lastReq.Mode)
	}
}

func TestCustomerPortalRequiresLink(t *testing.T) {
	svc, store, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	if _, err := svc.CustomerPortal(ctx, "u", "https://x"); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("err = %v", err)
	}
	_ = store.SetStripeCustomerID(ctx, "u", "cus_9")
	url, err := svc.CustomerPortal(ctx, "u", "https://x")
	if err != nil || url != "https://portal.example/cus_9" {
		t.Fatalf("url = %q err = %v", url, err)
	}
}

func TestCheckoutCompletedGrants(t *testing.T) {
	svc, store, _, clock := newPaymentFixture(t)
	ctx := context.Background()

	err := svc.ApplyEvent(ctx, &PaymentEvent{ID: "evt_1", Type: EventCheckoutCompleted, UID: "u", PriceIDs: []string{"price_px"}})
	if err != nil {
		t.Fatal(err)
	}
	u, _ := store.GetByUID(ctx, "u")
	if u.FreePixels != 105 || u.LastPurchaseAt == nil {
		t.Fatalf("pixel pack not applied: %+v", u)
	}

	_ = svc.ApplyEvent(ctx, &PaymentEvent{ID: "evt_2", Type: EventCheckoutCompleted, UID: "u", PriceIDs: []string{"price_all"}})
	u, _ = store.GetByUID(ctx, "u")
	want := clock.Now().Add(PackPeriod)
	if u.ColorPack != domain.ColorPackAll || u.ColorPackExpiry == nil || !u.ColorPackExpiry.Equal(want) {
		t.Fatalf("all pack not applied: %+v", u)
	}

	logs, _ := store.AuditLogsByUID(ctx, "u", 10)
	if len(logs) != 2 || logs[0].Action != domain.AuditActionEntitlementGrant {
		t.Fatalf("audit = %+v", logs)
	}
}

func TestRenewalAndCancellation(t *testing.T) {
	svc, store, _, clock := newPaymentFixture(t)
	ctx := context.Background()
	_ = store.SetStripeCustomerID(ctx, "u", "cus_u")

	_ = svc.ApplyEvent(ctx, &PaymentEvent{Type: EventCheckoutCompleted, UID: "u", PriceIDs: []string{"price_all"}})
	// first invoice of the subscription arrives with the checkout and must not double the period
	_ = svc.ApplyEvent(ctx, &PaymentEvent{Type: EventInvoicePaid, CustomerID: "cus_u", PriceIDs: []string{"price_all"}})
	u, _ := store.GetByUID(ctx, "u")
	if !u.ColorPackExpiry.Equal(clock.Now().Add(PackPeriod)) {
		t.Fatalf("expiry = %v", u.ColorPackExpiry)
	}

	clock.Advance(PackPeriod)
	_ = svc.ApplyEvent(ctx, &PaymentEvent{Type: EventInvoicePaid, CustomerID: "cus_u"})
	u, _ = store.GetByUID(ctx, "u")
	if !u.ColorPackExpiry.Equal(clock.Now().Add(PackPeriod)) {
		t.Fatalf("renewal expiry = %v", u.ColorPackExpiry)
	}

	_ = svc.ApplyEvent(ctx, &PaymentEvent{Type: EventSubscriptionDeleted, CustomerID: "cus_u"})
	u, _ = store.GetByUID(ctx, "u")
	if u.ColorPack != domain.ColorPackFree || u.ColorPackExpiry != nil {
		t.Fatalf("not downgraded: %+v", u)
	}
}

func TestWebhookIgnoresUnknownParties(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	for _, ev := range []*PaymentEvent{
		{Type: EventCheckoutCompleted},
		{Type: EventCheckoutCompleted, UID: "ghost", PriceIDs: []string{"price_px"}},
		{Type: EventSubscriptionDeleted, CustomerID: "cus_none"},
		{Type: "charge.refunded"},
	} {
		if err := svc.ApplyEvent(ctx, ev); err != nil {
			t.Fatalf("%+v: %v", ev, err)
		}
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	svc, _, gw, _ := newPaymentFixture(t)
	gw.parseErr = errors.New("no signatures found")
	var ve *domain.ValidationError
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad"); !errors.As(err, &ve) {
		t.Fatalf("err = %v", err)
	}
}

func TestPaymentsDisabledWithoutGateway(t *testing.T) {
	svc := NewPaymentService(repository.NewMemoryStore(nil), nil, nil, testPrices, nil)
	if _, err := svc.CreateCheckout(context.Background(), Identity{UID: "u"}, "p", "", "", ""); !errors.Is(err, ErrPaymentsDisabled) {
		t.Fatalf("err = %v", err)
	}
}
