package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	sdk "github.com/plutov/paypal/v4"

	"github.com/angelmondragon/mycms-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

var errCredentialsRequired = errors.New("paypal client id and secret are required")

// Client exposes PayPal Orders v2 on behalf of any merchant with centralized logging and error mapping.
// One SDK client is kept per merchant account so its access token is reused until expiry.
type Client struct {
	httpClient *http.Client
	sandboxURL string
	liveURL    string
	logger     *logger.Logger
	verbose    bool

	mu        sync.Mutex
	merchants map[merchantKey]*sdk.Client
}

type merchantKey struct {
	base     string
	clientID string
	secret   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client handed to the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the PayPal wrapper from config. Blank base URLs fall back to the SDK endpoints.
func NewClient(cfg config.PayPalConfig, logg *logger.Logger, opts ...Option) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		sandboxURL: baseOrDefault(cfg.SandboxBaseURL, sdk.APIBaseSandBox),
		liveURL:    baseOrDefault(cfg.LiveBaseURL, sdk.APIBaseLive),
		logger:     logg,
		verbose:    cfg.Debug,
		merchants:  map[merchantKey]*sdk.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func baseOrDefault(value, fallback string) string {
	if v := strings.TrimRight(strings.TrimSpace(value), "/"); v != "" {
		return v
	}
	return fallback
}

func (c *Client) merchant(creds Credentials) (*sdk.Client, error) {
	id := strings.TrimSpace(creds.ClientID)
	secret := strings.TrimSpace(creds.ClientSecret)
	if id == "" || secret == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errCredentialsRequired, "paypal credentials are not configured")
	}
	key := merchantKey{base: c.sandboxURL, clientID: id, secret: secret}
	if creds.Live {
		key.base = c.liveURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if api, ok := c.merchants[key]; ok {
		return api, nil
	}
	api, err := sdk.NewClient(id, secret, key.base)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "paypal credentials are not configured")
	}
	api.SetHTTPClient(c.httpClient)
	api.SetReturnRepresentation()
	c.merchants[key] = api
	return api, nil
}

// CreateOrder opens an order and returns the provider representation.
func (c *Client) CreateOrder(ctx context.Context, creds Credentials, req OrderRequest) (*sdk.Order, error) {
	api, err := c.merchant(creds)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"live": creds.Live, "intent": req.Intent}
	if len(req.PurchaseUnits) > 0 {
		fields["reference_id"] = req.PurchaseUnits[0].ReferenceID
		if amount := req.PurchaseUnits[0].Amount; amount != nil {
			fields["amount"] = amount.Value
			fields["currency"] = amount.Currency
		}
	}
	c.log(ctx, "request", "create_order", fields)

	order, err := api.CreateOrder(ctx, req.Intent, req.PurchaseUnits, nil, req.ApplicationContext)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, c.mapPayPalError(err, "create order")
	}
	c.log(ctx, "response", "create_order", map[string]any{"paypal_order_id": order.ID, "status": order.Status})
	return order, nil
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, creds Credentials, orderID string) (*sdk.CaptureOrderResponse, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required")
	}
	api, err := c.merchant(creds)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "capture_order", map[string]any{"paypal_order_id": id, "live": creds.Live})
	resp, err := api.CaptureOrder(ctx, id, sdk.CaptureOrderRequest{})
	if err != nil {
		c.log(ctx, "error", "capture_order", map[string]any{"error": err.Error()})
		return nil, c.mapPayPalError(err, "capture order")
	}
	c.log(ctx, "response", "capture_order", map[string]any{
		"paypal_order_id": resp.ID,
		"status":          resp.Status,
		"capture_id":      CaptureID(resp),
	})
	return resp, nil
}

func (c *Client) mapPayPalError(err error, op string) error {
	var apiErr *sdk.ErrorResponse
	if errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, ProviderMessage(apiErr)).
			WithDetails(map[string]any{"operation": op, "status": statusCode(apiErr), "debug_id": apiErr.DebugID})
	}
	return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("paypal %s failed: %v", op, err)).
		WithDetails(map[string]any{"operation": op})
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch {
	case phase == "error":
		c.logger.Error(ctx, fmt.Sprintf("paypal %s", op), errors.New(fmt.Sprint(fields["error"])))
	case c.verbose:
		c.logger.Info(ctx, fmt.Sprintf("paypal %s", phase))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("paypal %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "authorization", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
