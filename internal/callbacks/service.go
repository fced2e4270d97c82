package callbacks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/events"
	"github.com/angelmondragon/mycms-backend/internal/orders"
	"github.com/angelmondragon/mycms-backend/internal/payments"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
	"github.com/angelmondragon/mycms-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
	"github.com/angelmondragon/mycms-backend/pkg/metrics"
)

const (
	emptyURLPage     = "/empty-url.html"
	urlTypeSuccess   = "order-success"
	urlTypeCancelled = "order-cancel"
)

// SuccessParams are the query parameters of the provider's approval redirect.
type SuccessParams struct {
	User    string
	OrderID string
	Token   string
	PayerID string
}

// CancelParams are the query parameters of the provider's cancel redirect.
type CancelParams struct {
	User    string
	OrderID string
	Token   string
}

type ServiceParams struct {
	Repository *tenants.Repository
	Provider   payments.Provider
	Locker     docstore.Locker
	Events     events.Publisher
	Metrics    *metrics.OperationMetrics
	Logger     *logger.Logger
}

// Service settles pending orders when the buyer returns from the provider.
type Service struct {
	repo     *tenants.Repository
	provider payments.Provider
	locker   docstore.Locker
	events   events.Publisher
	metrics  *metrics.OperationMetrics
	logg     *logger.Logger
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
	locker := params.Locker
	if locker == nil {
		locker = docstore.NopLocker{}
	}
	publisher := params.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:     params.Repository,
		provider: params.Provider,
		locker:   locker,
		events:   publisher,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleSuccess captures the order's payment, marks it paid and returns the
// storefront URL the buyer is redirected to. Repeating it for a paid order is safe.
func (s *Service) HandleSuccess(ctx context.Context, params SuccessParams) (redirect string, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveResult(metrics.OpPaymentSuccess, start, err) }()

	if err := requireParams(map[string]string{
		"user":    params.User,
		"order":   params.OrderID,
		"token":   params.Token,
		"PayerID": params.PayerID,
	}); err != nil {
		return "", err
	}
	key := docstore.TenantKey(params.User)
	ctx = s.logg.WithTenant(ctx, key)
	ctx = s.logg.WithOrderID(ctx, params.OrderID)

	release, err := s.locker.Lock(ctx, key)
	if err != nil {
		return "", err
	}
	defer s.release(ctx, release)

	doc, err := s.repo.Load(ctx, key)
	if err != nil {
		return "", err
	}
	order, idx := orders.FindByOrderID(doc.Orders, params.OrderID)
	if idx < 0 {
		return "", orderNotFound(params.OrderID)
	}
	if order.PaymentStatus == enums.PaymentStatusCancelled {
		// Checked before capture so a cancelled order is never charged.
		_, err := orders.Transition(doc.Orders, params.OrderID, enums.PaymentStatusSuccess, orders.Extra{})
		return "", err
	}

	sessionID := order.PayPalOrderID
	if sessionID == "" {
		sessionID = params.Token
	}
	var txnID string
	capture, err := s.provider.CaptureSession(ctx, credentialsFor(doc), sessionID)
	switch {
	case errors.Is(err, payments.ErrAlreadyCaptured):
		s.logg.Info(ctx, "payment session already captured")
	case err != nil:
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeProvider, err, err.Error())
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment capture rejected")
		return "", err
	case capture != nil:
		txnID = capture.TransactionID
	}

	updated, err := orders.Transition(doc.Orders, params.OrderID, enums.PaymentStatusSuccess, orders.Extra{TransactionID: txnID})
	if err != nil {
		return "", err
	}
	changed := order.PaymentStatus != enums.PaymentStatusSuccess
	doc.Orders = updated
	if err := s.repo.Save(ctx, key, doc); err != nil {
		s.logg.Error(ctx, "failed to persist paid order", err)
		return "", err
	}

	paid, _ := orders.FindByOrderID(doc.Orders, params.OrderID)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": paid.PayPalTxnID,
		"changed":        changed,
	}), "order payment succeeded")
	if changed {
		s.publish(ctx, events.NewOrderEvent(events.OrderPaid, key, paid))
	}
	return redirectURL(doc.Settings.SiteURL, doc.Settings.SuccessPage(), urlTypeSuccess), nil
}

// HandleCancel marks the order cancelled. A paid order cannot be cancelled here.
func (s *Service) HandleCancel(ctx context.Context, params CancelParams) (redirect string, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveResult(metrics.OpPaymentCancel, start, err) }()

	if err := requireParams(map[string]string{
		"user":  params.User,
		"order": params.OrderID,
		"token": params.Token,
	}); err != nil {
		return "", err
	}
	key := docstore.TenantKey(params.User)
	ctx = s.logg.WithTenant(ctx, key)
	ctx = s.logg.WithOrderID(ctx, params.OrderID)

	release, err := s.locker.Lock(ctx, key)
	if err != nil {
		return "", err
	}
	defer s.release(ctx, release)

	doc, err := s.repo.Load(ctx, key)
	if err != nil {
		return "", err
	}
	order, idx := orders.FindByOrderID(doc.Orders, params.OrderID)
	if idx < 0 {
		return "", orderNotFound(params.OrderID)
	}
	updated, err := orders.Transition(doc.Orders, params.OrderID, enums.PaymentStatusCancelled, orders.Extra{})
	if err != nil {
		return "", err
	}
	changed := order.PaymentStatus != enums.PaymentStatusCancelled
	doc.Orders = updated
	if err := s.repo.Save(ctx, key, doc); err != nil {
		s.logg.Error(ctx, "failed to persist cancelled order", err)
		return "", err
	}

	s.logg.Info(s.logg.WithField(ctx, "changed", changed), "order cancelled")
	if changed {
		cancelled, _ := orders.FindByOrderID(doc.Orders, params.OrderID)
		s.publish(ctx, events.NewOrderEvent(events.OrderCancelled, key, cancelled))
	}
	return redirectURL(doc.Settings.SiteURL, doc.Settings.CancelPage(), urlTypeCancelled), nil
}

func (s *Service) release(ctx context.Context, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to release tenant lock")
	}
}

func (s *Service) publish(ctx context.Context, event events.OrderEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"event_type": string(event.EventType),
			"error":      err.Error(),
		}), "failed to publish order event")
	}
}

func credentialsFor(doc *tenants.Document) payments.Credentials {
	return payments.Credentials{
		ClientID:     doc.Settings.PayPal.ClientID,
		ClientSecret: doc.Settings.PayPal.ClientSecret,
		Mode:         doc.Settings.PaymentMode(),
	}
}

func requireParams(values map[string]string) error {
	var missing []string
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return pkgerrors.New(pkgerrors.CodeValidation, "missing required parameters: "+strings.Join(missing, ", ")).
		WithDetails(map[string]any{"missing": missing})
}

func orderNotFound(id string) error {
	return pkgerrors.New(pkgerrors.CodeOrderNotFound, fmt.Sprintf("order %s not found", id)).
		WithDetails(map[string]any{"order_id": id})
}

// redirectURL joins siteURL and page with exactly one slash. Without a site
// URL the buyer lands on a placeholder page naming which URL is missing.
func redirectURL(siteURL, page, urlType string) string {
	site := strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if site == "" {
		return emptyURLPage + "?" + url.Values{"url-type": {urlType}}.Encode()
	}
	return site + "/" + strings.TrimLeft(strings.TrimSpace(page), "/")
}
