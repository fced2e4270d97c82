package payments

import (
	"context"
	"errors"
	"strconv"

	sdk "github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mycms-backend/internal/money"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/paypal"
)

type paypalAPI interface {
	CreateOrder(ctx context.Context, creds paypal.Credentials, req paypal.OrderRequest) (*sdk.Order, error)
	CaptureOrder(ctx context.Context, creds paypal.Credentials, orderID string) (*sdk.CaptureOrderResponse, error)
}

// PayPalProvider implements Provider with PayPal Orders v2.
type PayPalProvider struct {
	api paypalAPI
}

func NewPayPalProvider(api paypalAPI) (*PayPalProvider, error) {
	if api == nil {
		return nil, errors.New("paypal client is required")
	}
	return &PayPalProvider{api: api}, nil
}

func (p *PayPalProvider) CreatePaymentSession(ctx context.Context, creds Credentials, intent Intent) (*Session, error) {
	order, err := p.api.CreateOrder(ctx, toPayPalCredentials(creds), buildOrderRequest(intent))
	if err != nil {
		return nil, err
	}
	approval := paypal.ApprovalURL(order)
	if approval == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "paypal response did not include an approval link").
			WithDetails(map[string]any{"paypal_order_id": order.ID, "status": order.Status})
	}
	return &Session{ID: order.ID, ApprovalURL: approval}, nil
}

func (p *PayPalProvider) CaptureSession(ctx context.Context, creds Credentials, sessionID string) (*CaptureResult, error) {
	resp, err := p.api.CaptureOrder(ctx, toPayPalCredentials(creds), sessionID)
	if err != nil {
		if paypal.HasIssue(err, paypal.IssueOrderAlreadyCaptured) {
			return nil, ErrAlreadyCaptured
		}
		return nil, err
	}
	return &CaptureResult{TransactionID: paypal.CaptureID(resp), Status: resp.Status}, nil
}

func toPayPalCredentials(creds Credentials) paypal.Credentials {
	return paypal.Credentials{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Live:         creds.Mode.IsLive(),
	}
}

func buildOrderRequest(intent Intent) paypal.OrderRequest {
	cur := intent.Currency
	amt := func(v decimal.Decimal) *sdk.Money { return paypal.Amount(cur, money.FormatAmount(v)) }

	items := make([]sdk.Item, 0, len(intent.Items))
	for _, it := range intent.Items {
		items = append(items, sdk.Item{
			Name:       it.Name,
			SKU:        it.SKU,
			UnitAmount: amt(it.UnitPrice),
			Tax:        amt(it.Tax),
			Quantity:   strconv.FormatInt(it.Quantity, 10),
			Category:   paypal.CategoryPhysicalGoods,
		})
	}

	ship := intent.ShipTo
	return paypal.OrderRequest{
		Intent: paypal.IntentCapture,
		ApplicationContext: &sdk.ApplicationContext{
			ReturnURL:          intent.ReturnURL,
			CancelURL:          intent.CancelURL,
			BrandName:          intent.BrandName,
			Locale:             intent.Locale,
			LandingPage:        paypal.LandingPageBilling,
			ShippingPreference: paypal.ShippingSetProvided,
			UserAction:         paypal.UserActionContinue,
		},
		PurchaseUnits: []sdk.PurchaseUnitRequest{{
			ReferenceID: intent.Reference,
			Amount: &sdk.PurchaseUnitAmount{
				Currency: cur,
				Value:    money.FormatAmount(intent.Grand()),
				Breakdown: &sdk.PurchaseUnitAmountBreakdown{
					ItemTotal:        amt(intent.Totals.Subtotal),
					Shipping:         amt(decimal.Zero),
					Handling:         amt(intent.Handling),
					TaxTotal:         amt(intent.Totals.TotalTax),
					ShippingDiscount: amt(decimal.Zero),
				},
			},
			Items: items,
			Shipping: &sdk.ShippingDetail{
				Name: &sdk.Name{FullName: ship.FullName},
				Address: &sdk.ShippingDetailAddressPortable{
					AddressLine1: ship.Line1,
					AddressLine2: ship.Line2,
					AdminArea2:   ship.City,
					AdminArea1:   ship.Province,
					PostalCode:   ship.PostalCode,
					CountryCode:  ship.CountryCode,
				},
			},
		}},
	}
}
