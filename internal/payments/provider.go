package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mycms-backend/internal/money"
	"github.com/angelmondragon/mycms-backend/pkg/enums"
)

// ErrAlreadyCaptured reports that the provider had already captured the session.
var ErrAlreadyCaptured = errors.New("payment session already captured")

// Credentials are the tenant's merchant credentials for the provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Mode         enums.PaymentMode
}

type Item struct {
	SKU       string
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	Tax       decimal.Decimal
}

type Address struct {
	FullName    string
	Line1       string
	Line2       string
	City        string
	Province    string
	PostalCode  string
	CountryCode string
}

// Intent is a provider-agnostic request to open a payment session.
type Intent struct {
	Reference string
	Currency  string
	Locale    string
	BrandName string
	Items     []Item
	Totals    money.Totals
	Handling  decimal.Decimal
	ShipTo    Address
	ReturnURL string
	CancelURL string
}

// Grand is the amount the buyer is charged.
func (i Intent) Grand() decimal.Decimal {
	return i.Totals.Grand(i.Handling)
}

type Session struct {
	ID          string
	ApprovalURL string
}

type CaptureResult struct {
	// TransactionID is empty when the provider response did not carry one.
	TransactionID string
	Status        string
}

// Provider opens and captures payment sessions.
type Provider interface {
	CreatePaymentSession(ctx context.Context, creds Credentials, intent Intent) (*Session, error)
	CaptureSession(ctx context.Context, creds Credentials, sessionID string) (*CaptureResult, error)
}
