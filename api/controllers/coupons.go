package controllers

import (
	"net/http"

	"github.com/giftree-kr/giftree-backend/api/responses"
	"github.com/giftree-kr/giftree-backend/internal/coupons"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

// ListCoupons returns the shopper's usable coupons, soonest expiry first.
func ListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		holderID, err := holderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListUsable(r.Context(), holderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coupons": rows})
	}
}
