package controllers

import (
	"net/http"

	"github.com/giftree-kr/giftree-backend/api/responses"
	"github.com/giftree-kr/giftree-backend/api/validators"
	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/pagination"
)

// BrowseGifticons lists a brand's sellable units, best value first.
func BrowseGifticons(svc gifticons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gifticon service unavailable"))
			return
		}

		brand := validators.SanitizeString(r.URL.Query().Get("brand"), 120)
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), brand, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
