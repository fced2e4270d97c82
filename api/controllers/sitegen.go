package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/mycms-backend/api/responses"
	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/sitegen"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

const (
	themeFormField   = "theme"
	multipartMemory  = 8 << 20
	multipartOverrun = 1 << 20
)

type SiteGenerator interface {
	Generate(ctx context.Context, tenantKey string, bundle sitegen.ThemeBundle) (*sitegen.Archive, error)
}

// GenerateSite renders the tenant's storefront from an uploaded theme and
// streams the archive back as an attachment.
func GenerateSite(gen SiteGenerator, maxThemeBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxThemeBytes+multipartOverrun)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = themeTooLarge(maxThemeBytes)
			} else {
				err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		user := strings.TrimSpace(r.FormValue("user"))
		if user == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: user"))
			return
		}
		file, header, err := r.FormFile(themeFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "missing required fields: theme"))
			return
		}
		defer file.Close()
		if header.Size > maxThemeBytes {
			responses.WriteError(r.Context(), logg, w, themeTooLarge(maxThemeBytes))
			return
		}

		archive, err := gen.Generate(r.Context(), docstore.TenantKey(user), sitegen.ThemeBundle{Reader: file, Size: header.Size})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(archive.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(archive.Data); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "site archive write failed")
		}
	}
}

func themeTooLarge(limit int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("theme bundle exceeds %d MB", limit>>20))
}
