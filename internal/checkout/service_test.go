package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/events"
	"github.com/angelmondragon/mycms-backend/internal/orders"
	"github.com/angelmondragon/mycms-backend/internal/payments"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
	"github.com/angelmondragon/mycms-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

const tenantKey = "user:a@b.com"

type countingStore struct {
	*docstore.MemoryStore
	gets int
	puts int
}

func (s *countingStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	s.gets++
	return s.MemoryStore.Get(ctx, key)
}

func (s *countingStore) Put(ctx context.Context, key string, value json.RawMessage) error {
	s.puts++
	return s.MemoryStore.Put(ctx, key, value)
}

type fakeProvider struct {
	calls   int
	intent  payments.Intent
	creds   payments.Credentials
	session *payments.Session
	err     error
}

func (f *fakeProvider) CreatePaymentSession(_ context.Context, creds payments.Credentials, intent payments.Intent) (*payments.Session, error) {
	f.calls++
	f.creds = creds
	f.intent = intent
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) CaptureSession(context.Context, payments.Credentials, string) (*payments.CaptureResult, error) {
	return nil, errors.New("not used")
}

type recordingPublisher struct {
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.events = append(p.events, e)
	return p.err
}

type harness struct {
	svc       *Service
	store     *countingStore
	provider  *fakeProvider
	publisher *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := &countingStore{MemoryStore: docstore.NewMemoryStore()}
	doc := tenants.Document{
		ID:    "t1",
		Email: "a@b.com",
		Settings: tenants.Settings{
			StoreName: "Shop",
			SiteURL:   "https://store.example",
			PayPal: tenants.PaymentSettings{
				ClientID:     "cid",
				ClientSecret: "secret",
				Mode:         "sandbox",
				HandlingFee:  decimal.NewNullDecimal(decimal.RequireFromString("1.50")),
			},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	if err := store.MemoryStore.Put(context.Background(), tenantKey, raw); err != nil {
		t.Fatalf("seed doc: %v", err)
	}
	repo, err := tenants.NewRepository(store)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	provider := &fakeProvider{session: &payments.Session{ID: "S1", ApprovalURL: "https://pay/S1"}}
	publisher := &recordingPublisher{}
	svc, err := NewService(ServiceParams{
		Repository:      repo,
		Provider:        provider,
		Events:          publisher,
		Logger:          logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		CallbackBaseURL: "https://api.example/",
		Now:             func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &harness{svc: svc, store: store, provider: provider, publisher: publisher}
}

func validRequest() Request {
	return Request{
		OrderID:  "1001",
		Date:     "2026-05-01",
		Customer: &CustomerInput{Name: "Ann Buyer", Email: "ann@example.com"},
		Shipping: &ShippingInput{
			Address1:   "1 Main St",
			City:       "Springfield",
			Province:   "IL",
			PostalCode: "62701",
			Country:    "us",
		},
		Items: []ItemInput{
			{ProductID: "p1", Name: "Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(10), Tax: decimal.NewFromInt(1)},
			{ProductID: "p2", Name: "Pin", Quantity: 1, UnitPrice: decimal.NewFromInt(5), Tax: decimal.Zero},
		},
	}
}

func (h *harness) storedOrders(t *testing.T) []orders.Order {
	t.Helper()
	raw, err := h.store.MemoryStore.Get(context.Background(), tenantKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var doc tenants.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc.Orders
}

func TestCreateCheckoutRecordsPendingOrder(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.CreateCheckout(context.Background(), tenantKey, validRequest())
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if res.ApprovalURL != "https://pay/S1" || res.SessionID != "S1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Subtotal.Equal(decimal.NewFromInt(25)) || !res.TotalTax.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected totals subtotal=%s tax=%s", res.Subtotal, res.TotalTax)
	}
	if !res.Grand.Equal(decimal.RequireFromString("28.50")) {
		t.Fatalf("expected grand 28.50, got %s", res.Grand)
	}
	if h.provider.calls != 1 || h.store.puts != 1 {
		t.Fatalf("expected one provider call and one write, got %d/%d", h.provider.calls, h.store.puts)
	}

	stored := h.storedOrders(t)
	if len(stored) != 1 {
		t.Fatalf("expected one order, got %d", len(stored))
	}
	o := stored[0]
	if o.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", o.PaymentStatus)
	}
	if !o.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected amount 25, got %s", o.Amount)
	}
	if o.PayPalOrderID != "S1" {
		t.Fatalf("expected session id stored, got %q", o.PayPalOrderID)
	}
	if o.Date != "2026-05-01T10:00:00Z" {
		t.Fatalf("expected server date, got %q", o.Date)
	}
	if o.Shipping == nil || o.Shipping.Country != "US" {
		t.Fatalf("expected normalized shipping, got %+v", o.Shipping)
	}

	if len(h.publisher.events) != 1 || h.publisher.events[0].EventType != events.OrderCreated {
		t.Fatalf("expected one order.created event, got %+v", h.publisher.events)
	}
}

func TestCreateCheckoutBuildsIntent(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.CreateCheckout(context.Background(), tenantKey, validRequest()); err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	intent := h.provider.intent
	if intent.Currency != "USD" || intent.Locale != "en-US" || intent.BrandName != "Shop" {
		t.Fatalf("unexpected intent settings %+v", intent)
	}
	if len(intent.Items) != 2 || intent.Items[0].SKU != "p1" {
		t.Fatalf("unexpected items %+v", intent.Items)
	}
	if h.provider.creds.ClientID != "cid" || h.provider.creds.Mode != enums.PaymentModeSandbox {
		t.Fatalf("unexpected credentials %+v", h.provider.creds)
	}

	ret, err := url.Parse(intent.ReturnURL)
	if err != nil {
		t.Fatalf("parse return url: %v", err)
	}
	if ret.Path != "/api/v1/payments/success" || ret.Query().Get("user") != "a@b.com" || ret.Query().Get("order") != "1001" {
		t.Fatalf("unexpected return url %s", intent.ReturnURL)
	}
	if !strings.HasPrefix(intent.CancelURL, "https://api.example/api/v1/payments/cancel?") {
		t.Fatalf("unexpected cancel url %s", intent.CancelURL)
	}
}

func TestCreateCheckoutDuplicateOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.svc.CreateCheckout(ctx, tenantKey, validRequest()); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	h.provider.calls, h.store.puts = 0, 0

	_, err := h.svc.CreateCheckout(ctx, tenantKey, validRequest())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateOrder) {
		t.Fatalf("expected duplicate order, got %v", err)
	}
	if h.provider.calls != 0 || h.store.puts != 0 {
		t.Fatalf("expected no provider calls or writes, got %d/%d", h.provider.calls, h.store.puts)
	}
}

func TestCreateCheckoutValidationListsAllMissingFields(t *testing.T) {
	h := newHarness(t)
	req := Request{Customer: &CustomerInput{}, Shipping: &ShippingInput{Country: "US"}}

	_, err := h.svc.CreateCheckout(context.Background(), tenantKey, req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	msg := pkgerrors.As(err).Message()
	for _, field := range []string{"orderId", "date", "customer.name", "customer.email", "shipping.address1", "shipping.city", "items"} {
		if !strings.Contains(msg, field) {
			t.Fatalf("expected %q in message %q", field, msg)
		}
	}
	if h.store.gets != 0 || h.store.puts != 0 || h.provider.calls != 0 {
		t.Fatalf("validation must not perform I/O")
	}
}

func TestCreateCheckoutRejectsBadQuantity(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.Items[1].Quantity = 0

	_, err := h.svc.CreateCheckout(context.Background(), tenantKey, req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.provider.calls != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestCreateCheckoutProviderFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.provider.err = errors.New("INVALID_REQUEST: currency not supported")

	_, err := h.svc.CreateCheckout(context.Background(), tenantKey, validRequest())
	if !pkgerrors.IsCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if msg := pkgerrors.As(err).Message(); msg != "INVALID_REQUEST: currency not supported" {
		t.Fatalf("expected provider message verbatim, got %q", msg)
	}
	if h.store.puts != 0 {
		t.Fatalf("expected no writes, got %d", h.store.puts)
	}
	if len(h.publisher.events) != 0 {
		t.Fatalf("expected no events")
	}
}

func TestCreateCheckoutUnknownTenant(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateCheckout(context.Background(), "user:nobody@b.com", validRequest())
	if !pkgerrors.IsCode(err, pkgerrors.CodeTenantNotFound) {
		t.Fatalf("expected tenant not found, got %v", err)
	}
	if h.provider.calls != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestCreateCheckoutPublishFailureDoesNotFail(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("pubsub down")

	if _, err := h.svc.CreateCheckout(context.Background(), tenantKey, validRequest()); err != nil {
		t.Fatalf("expected success despite publish failure, got %v", err)
	}
	if len(h.storedOrders(t)) != 1 {
		t.Fatalf("expected order persisted")
	}
}

type contendedLocker struct{}

func (contendedLocker) Lock(context.Context, string) (func(context.Context) error, error) {
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "tenant is busy")
}

func TestCreateCheckoutLockContention(t *testing.T) {
	h := newHarness(t)
	h.svc.locker = contendedLocker{}

	_, err := h.svc.CreateCheckout(context.Background(), tenantKey, validRequest())
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if h.store.gets != 0 || h.provider.calls != 0 {
		t.Fatalf("expected no work under contention")
	}
}

func TestNewServiceRequiresAbsoluteCallbackURL(t *testing.T) {
	repo, _ := tenants.NewRepository(docstore.NewMemoryStore())
	_, err := NewService(ServiceParams{
		Repository:      repo,
		Provider:        &fakeProvider{},
		Logger:          logger.New(logger.Options{Output: io.Discard}),
		CallbackBaseURL: "/relative",
	})
	if err == nil {
		t.Fatal("expected error for relative callback url")
	}
}
