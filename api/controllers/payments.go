package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/mycms-backend/api/responses"
	"github.com/angelmondragon/mycms-backend/internal/callbacks"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

type CallbackService interface {
	HandleSuccess(ctx context.Context, params callbacks.SuccessParams) (string, error)
	HandleCancel(ctx context.Context, params callbacks.CancelParams) (string, error)
}

// PaymentSuccess handles the provider's approval redirect.
func PaymentSuccess(svc CallbackService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		location, err := svc.HandleSuccess(r.Context(), callbacks.SuccessParams{
			User:    q.Get("user"),
			OrderID: q.Get("order"),
			Token:   q.Get("token"),
			PayerID: q.Get("PayerID"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteRedirect(w, r, location)
	}
}

// PaymentCancel handles the provider's cancel redirect.
func PaymentCancel(svc CallbackService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		location, err := svc.HandleCancel(r.Context(), callbacks.CancelParams{
			User:    q.Get("user"),
			OrderID: q.Get("order"),
			Token:   q.Get("token"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteRedirect(w, r, location)
	}
}
