package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/events"
	"github.com/angelmondragon/mycms-backend/internal/money"
	"github.com/angelmondragon/mycms-backend/internal/orders"
	"github.com/angelmondragon/mycms-backend/internal/payments"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
	"github.com/angelmondragon/mycms-backend/pkg/metrics"
)

const (
	successCallbackPath = "/api/v1/payments/success"
	cancelCallbackPath  = "/api/v1/payments/cancel"
)

// Result is returned to the storefront so the buyer can be redirected to the provider.
type Result struct {
	OrderID     string
	SessionID   string
	ApprovalURL string
	Subtotal    decimal.Decimal
	TotalTax    decimal.Decimal
	Grand       decimal.Decimal
}

// ServiceParams wires the checkout service dependencies.
type ServiceParams struct {
	Repository      *tenants.Repository
	Provider        payments.Provider
	Locker          docstore.Locker
	Events          events.Publisher
	Metrics         *metrics.OperationMetrics
	Logger          *logger.Logger
	CallbackBaseURL string
	Now             func() time.Time
}

// Service creates pending orders backed by a provider payment session.
type Service struct {
	repo        *tenants.Repository
	provider    payments.Provider
	locker      docstore.Locker
	events      events.Publisher
	metrics     *metrics.OperationMetrics
	logg        *logger.Logger
	callbackURL *url.URL
	now         func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(params.CallbackBaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("callback base url must be absolute: %q", params.CallbackBaseURL)
	}
	locker := params.Locker
	if locker == nil {
		locker = docstore.NopLocker{}
	}
	publisher := params.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:        params.Repository,
		provider:    params.Provider,
		locker:      locker,
		events:      publisher,
		metrics:     params.Metrics,
		logg:        params.Logger,
		callbackURL: base,
		now:         now,
	}, nil
}

// CreateCheckout validates req, opens a payment session and records a pending order.
// Nothing is written unless the provider call succeeds.
func (s *Service) CreateCheckout(ctx context.Context, tenantKey string, req Request) (result *Result, err error) {
	start := s.now()
	defer func() { s.metrics.ObserveResult(metrics.OpCheckout, start, err) }()

	if strings.TrimSpace(tenantKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: user")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	items := req.lineItems()
	totals, err := money.Compute(orders.MoneyItems(items))
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithTenant(ctx, tenantKey)
	ctx = s.logg.WithOrderID(ctx, req.OrderID)

	release, err := s.locker.Lock(ctx, tenantKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "failed to release tenant lock")
		}
	}()

	doc, err := s.repo.Load(ctx, tenantKey)
	if err != nil {
		return nil, err
	}
	if err := orders.AssertNotExists(doc.Orders, req.OrderID); err != nil {
		return nil, err
	}

	pay := doc.Settings.PayPal
	if strings.TrimSpace(pay.ClientID) == "" || strings.TrimSpace(pay.ClientSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant has no payment credentials configured")
	}
	creds := payments.Credentials{
		ClientID:     pay.ClientID,
		ClientSecret: pay.ClientSecret,
		Mode:         doc.Settings.PaymentMode(),
	}

	intent := s.buildIntent(tenantKey, doc, &req, items, totals)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"mode":  string(creds.Mode),
		"grand": money.FormatAmount(intent.Grand()),
	}), "creating payment session")

	session, err := s.provider.CreatePaymentSession(ctx, creds, intent)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeProvider, err, err.Error())
		}
		return nil, err
	}
	if session == nil || session.ID == "" || session.ApprovalURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "payment provider returned an incomplete session")
	}

	order := orders.Order{
		OrderID:       req.OrderID,
		Date:          s.now().UTC().Format(time.RFC3339),
		Customer:      req.customer(),
		Shipping:      req.shipping(),
		Items:         items,
		Amount:        totals.Subtotal,
		PayPalOrderID: session.ID,
	}
	doc.Orders = orders.AppendPending(doc.Orders, order)
	if err := s.repo.Save(ctx, tenantKey, doc); err != nil {
		s.logg.Error(ctx, "failed to persist pending order", err)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "pending order recorded")

	stored, _ := orders.FindByOrderID(doc.Orders, req.OrderID)
	s.publish(ctx, events.NewOrderEvent(events.OrderCreated, tenantKey, stored))

	return &Result{
		OrderID:     req.OrderID,
		SessionID:   session.ID,
		ApprovalURL: session.ApprovalURL,
		Subtotal:    totals.Subtotal,
		TotalTax:    totals.TotalTax,
		Grand:       intent.Grand(),
	}, nil
}

func (s *Service) buildIntent(tenantKey string, doc *tenants.Document, req *Request, items []orders.LineItem, totals money.Totals) payments.Intent {
	settings := doc.Settings
	payItems := make([]payments.Item, 0, len(items))
	for _, it := range items {
		payItems = append(payItems, payments.Item{
			SKU:       it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Tax:       it.Tax,
		})
	}
	ship := req.Shipping
	return payments.Intent{
		Reference: req.OrderID,
		Currency:  settings.CurrencyCode(),
		Locale:    settings.LocaleOrDefault(),
		BrandName: settings.StoreName,
		Items:     payItems,
		Totals:    totals,
		Handling:  settings.Handling(),
		ShipTo: payments.Address{
			FullName:    req.Customer.Name,
			Line1:       ship.Address1,
			Line2:       ship.Address2,
			City:        ship.City,
			Province:    ship.Province,
			PostalCode:  ship.PostalCode,
			CountryCode: ship.Country,
		},
		ReturnURL: s.callback(successCallbackPath, tenantKey, req.OrderID),
		CancelURL: s.callback(cancelCallbackPath, tenantKey, req.OrderID),
	}
}

// callback builds a provider return URL carrying the tenant email and order id.
func (s *Service) callback(path, tenantKey, orderID string) string {
	u := *s.callbackURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = url.Values{
		"user":  {docstore.EmailFromKey(tenantKey)},
		"order": {orderID},
	}.Encode()
	return u.String()
}

func (s *Service) publish(ctx context.Context, event events.OrderEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"event_type": string(event.EventType),
			"error":      err.Error(),
		}), "failed to publish order event")
	}
}
