package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/mycms-backend/api/responses"
	"github.com/angelmondragon/mycms-backend/api/validators"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

const maxDocumentBytes = 8 << 20

// TenantService is the tenant document surface used by the HTTP layer.
type TenantService interface {
	CreateOrLogin(ctx context.Context, email string) (*tenants.Document, error)
	GetDocument(ctx context.Context, email string) (*tenants.Document, error)
	PutDocument(ctx context.Context, email string, doc *tenants.Document) (*tenants.Document, error)
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (l *loginRequest) Normalize() {
	l.Email = validators.SanitizeString(l.Email, 320)
}

// TenantLogin returns the tenant document, creating it on first login.
func TenantLogin(svc TenantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := svc.CreateOrLogin(r.Context(), payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

func TenantGet(svc TenantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := emailParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := svc.GetDocument(r.Context(), email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

// TenantPut replaces the whole tenant document.
func TenantPut(svc TenantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := emailParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
		var doc tenants.Document
		if err := validators.DecodeJSON(r, &doc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stored, err := svc.PutDocument(r.Context(), email, &doc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stored)
	}
}

func emailParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "email")
	email, err := url.PathUnescape(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email path parameter")
	}
	return validators.SanitizeString(email, 320), nil
}
