package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/mycms-backend/api/responses"
	"github.com/angelmondragon/mycms-backend/api/validators"
	"github.com/angelmondragon/mycms-backend/internal/checkout"
	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/money"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
	"github.com/angelmondragon/mycms-backend/pkg/types"
)

const maxCheckoutBytes = 1 << 20

type CheckoutService interface {
	CreateCheckout(ctx context.Context, tenantKey string, req checkout.Request) (*checkout.Result, error)
}

type checkoutPayload struct {
	User string `json:"user"`
	checkout.Request
}

// Checkout opens a payment session for a storefront order. The tenant is
// named by the "user" body field or query parameter.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutBytes)
		var payload checkoutPayload
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user := strings.TrimSpace(payload.User)
		if user == "" {
			user = strings.TrimSpace(r.URL.Query().Get("user"))
		}
		var tenantKey string
		if user != "" {
			tenantKey = docstore.TenantKey(user)
		}

		res, err := svc.CreateCheckout(r.Context(), tenantKey, payload.Request)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, types.CheckoutSession{
			ApprovalURL: res.ApprovalURL,
			OrderID:     res.OrderID,
			SessionID:   res.SessionID,
			Subtotal:    money.FormatAmount(res.Subtotal),
			TotalTax:    money.FormatAmount(res.TotalTax),
			Total:       money.FormatAmount(res.Grand),
		})
	}
}
