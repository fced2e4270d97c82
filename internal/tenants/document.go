package tenants

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mycms-backend/internal/orders"
	"github.com/angelmondragon/mycms-backend/pkg/enums"
)

const (
	DefaultCurrency    = "USD"
	DefaultLocale      = "en-US"
	DefaultSuccessPage = "/order-success.html"
	DefaultCancelPage  = "/order-cancel.html"
	maxProductImages   = 8
)

// reservedProductIDs name the fixed storefront pages. A product page with one
// of these ids would overwrite the fixed page in a generated site.
var reservedProductIDs = []string{"index", "checkout", "order-success", "order-cancel"}

// IsReservedProductID reports whether id collides with a fixed page name.
func IsReservedProductID(id string) bool {
	id = strings.TrimSpace(id)
	for _, reserved := range reservedProductIDs {
		if strings.EqualFold(id, reserved) {
			return true
		}
	}
	return false
}

// Document is the whole persisted state of one tenant.
type Document struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Created  time.Time         `json:"created"`
	Products []Product         `json:"products"`
	Pages    []json.RawMessage `json:"pages"`
	Orders   []orders.Order    `json:"orders"`
	Settings Settings          `json:"settings"`
}

type Product struct {
	ProductID        string              `json:"productId"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	DescriptionDelta json.RawMessage     `json:"dsptDelta,omitempty"`
	RegularPrice     decimal.Decimal     `json:"regularPrice"`
	SellPrice        decimal.NullDecimal `json:"sellPrice"`
	Tax              decimal.Decimal     `json:"tax"`
	IsActive         bool                `json:"isActive"`
	Image0           string              `json:"image0,omitempty"`
	Image1           string              `json:"image1,omitempty"`
	Image2           string              `json:"image2,omitempty"`
	Image3           string              `json:"image3,omitempty"`
	Image4           string              `json:"image4,omitempty"`
	Image5           string              `json:"image5,omitempty"`
	Image6           string              `json:"image6,omitempty"`
	Image7           string              `json:"image7,omitempty"`
}

// Images returns the configured image URLs in slot order, skipping empty slots.
func (p Product) Images() []string {
	slots := [maxProductImages]string{p.Image0, p.Image1, p.Image2, p.Image3, p.Image4, p.Image5, p.Image6, p.Image7}
	out := make([]string, 0, maxProductImages)
	for _, s := range slots {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// EffectivePrice is the sell price, falling back to the regular price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SellPrice.Valid {
		return p.SellPrice.Decimal
	}
	return p.RegularPrice
}

type Settings struct {
	StoreName        string          `json:"storeName,omitempty"`
	SiteURL          string          `json:"siteUrl,omitempty"`
	Currency         string          `json:"currency,omitempty"`
	Locale           string          `json:"locale,omitempty"`
	ShippingProvider string          `json:"shippingProvider,omitempty"`
	PayPal           PaymentSettings `json:"paypal"`
}

// PaymentSettings holds the tenant's own PayPal merchant configuration.
type PaymentSettings struct {
	ClientID         string              `json:"clientID,omitempty"`
	ClientSecret     string              `json:"clientSecret,omitempty"`
	HandlingFee      decimal.NullDecimal `json:"handlingFee"`
	OrderSuccessPage string              `json:"orderSuccessPage,omitempty"`
	OrderCancelPage  string              `json:"orderCancelPage,omitempty"`
	Mode             string              `json:"mode,omitempty"`
}

func (s Settings) CurrencyCode() string {
	if c := strings.TrimSpace(s.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}

func (s Settings) LocaleOrDefault() string {
	if l := strings.TrimSpace(s.Locale); l != "" {
		return l
	}
	return DefaultLocale
}

func (s Settings) PaymentMode() enums.PaymentMode {
	return enums.ParsePaymentMode(s.PayPal.Mode)
}

// Handling returns the configured handling fee, zero when unset.
func (s Settings) Handling() decimal.Decimal {
	if s.PayPal.HandlingFee.Valid {
		return s.PayPal.HandlingFee.Decimal
	}
	return decimal.Zero
}

func (s Settings) SuccessPage() string {
	if p := strings.TrimSpace(s.PayPal.OrderSuccessPage); p != "" {
		return p
	}
	return DefaultSuccessPage
}

func (s Settings) CancelPage() string {
	if p := strings.TrimSpace(s.PayPal.OrderCancelPage); p != "" {
		return p
	}
	return DefaultCancelPage
}

// normalize fills nil collections so a document always serializes with arrays.
func (d *Document) normalize() {
	if d.Products == nil {
		d.Products = []Product{}
	}
	if d.Pages == nil {
		d.Pages = []json.RawMessage{}
	}
	if d.Orders == nil {
		d.Orders = []orders.Order{}
	}
}
