package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mycms-backend/internal/money"
	"github.com/angelmondragon/mycms-backend/pkg/enums"
)

// Customer identifies the buyer.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Shipping is the buyer-supplied delivery address.
type Shipping struct {
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// LineItem is one purchased product as the buyer saw it at checkout.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Tax       decimal.Decimal `json:"tax"`
}

// Order is one entry of a tenant's order ledger.
type Order struct {
	OrderID       string              `json:"orderId"`
	Date          string              `json:"date"`
	Customer      Customer            `json:"customer"`
	Shipping      *Shipping           `json:"shipping,omitempty"`
	Items         []LineItem          `json:"items"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PayPalOrderID string              `json:"paypal_order_id,omitempty"`
	PayPalTxnID   string              `json:"paypal_txn_id,omitempty"`
}

// Extra carries the fields merged into an order on a status transition.
type Extra struct {
	TransactionID string
}

// MoneyItems converts line items for the amount calculator.
func MoneyItems(items []LineItem) []money.LineItem {
	out := make([]money.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, money.LineItem{Quantity: it.Quantity, UnitPrice: it.UnitPrice, Tax: it.Tax})
	}
	return out
}
