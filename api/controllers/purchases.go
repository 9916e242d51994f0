package controllers

import (
	"net/http"

	"github.com/giftree-kr/giftree-backend/api/responses"
	"github.com/giftree-kr/giftree-backend/api/validators"
	"github.com/giftree-kr/giftree-backend/internal/purchases"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/pagination"
)

// ListPurchases pages through the shopper's purchased units, newest first.
func ListPurchases(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		holderID, err := holderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByBuyer(r.Context(), holderID, pagination.Params{
			Limit:  limit,
			Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
