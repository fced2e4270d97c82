package paypal

import (
	"strings"

	sdk "github.com/plutov/paypal/v4"
)

const (
	IntentCapture             = "CAPTURE"
	LandingPageBilling        = "BILLING"
	ShippingSetProvided       = "SET_PROVIDED_ADDRESS"
	UserActionContinue        = "CONTINUE"
	CategoryPhysicalGoods     = "PHYSICAL_GOODS"
	IssueOrderAlreadyCaptured = "ORDER_ALREADY_CAPTURED"
)

// Credentials authenticate one merchant account.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Live         bool
}

// OrderRequest is the create-order call in SDK terms.
type OrderRequest struct {
	Intent             string
	PurchaseUnits      []sdk.PurchaseUnitRequest
	ApplicationContext *sdk.ApplicationContext
}

// Amount builds an SDK money value.
func Amount(currency, value string) *sdk.Money {
	return &sdk.Money{Currency: currency, Value: value}
}

// ApprovalURL returns the buyer approval link, or "" when absent.
func ApprovalURL(order *sdk.Order) string {
	if order == nil {
		return ""
	}
	for _, rel := range []string{"approve", "payer-action"} {
		for _, link := range order.Links {
			if strings.EqualFold(link.Rel, rel) {
				return link.Href
			}
		}
	}
	return ""
}

// CaptureID returns the first capture id of the first purchase unit, or "" when absent.
func CaptureID(resp *sdk.CaptureOrderResponse) string {
	if resp == nil || len(resp.PurchaseUnits) == 0 {
		return ""
	}
	payments := resp.PurchaseUnits[0].Payments
	if payments == nil || len(payments.Captures) == 0 {
		return ""
	}
	return payments.Captures[0].ID
}
