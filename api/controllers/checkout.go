package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/api/responses"
	"github.com/giftree-kr/giftree-backend/api/validators"
	"github.com/giftree-kr/giftree-backend/internal/checkout"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

type startCheckoutRequest struct {
	Brand string `json:"brand" validate:"required,min=1,max=120"`
}

type selectUnitRequest struct {
	UnitID uuid.UUID `json:"unit_id" validate:"required"`
}

type autoFillRequest struct {
	BudgetWon int `json:"budget_won" validate:"required"`
}

type pickCouponRequest struct {
	CouponID *uuid.UUID `json:"coupon_id"`
}

type confirmRequest struct {
	SourceID string `json:"source_id" validate:"required,min=1"`
}

// StartCheckout opens a checkout session for one brand.
func StartCheckout(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		holderID, err := holderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := mgr.StartSession(r.Context(), holderID, validators.SanitizeString(payload.Brand, 120))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snap)
	}
}

// GetCheckout returns the current view of a session.
func GetCheckout(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		return mgr.Snapshot(r.Context(), sessionID, holderID)
	})
}

// SelectUnit reserves one displayed unit for the session.
func SelectUnit(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		var payload selectUnitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return mgr.Select(r.Context(), sessionID, holderID, payload.UnitID)
	})
}

// DeselectUnit releases one selected unit.
func DeselectUnit(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		var payload selectUnitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return mgr.Deselect(r.Context(), sessionID, holderID, payload.UnitID)
	})
}

// AutoFillCheckout switches the session to budget mode.
func AutoFillCheckout(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		var payload autoFillRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return mgr.AutoFill(r.Context(), sessionID, holderID, payload.BudgetWon)
	})
}

// CancelAutoFill returns the session to the recommended view.
func CancelAutoFill(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		return mgr.CancelAutoFill(r.Context(), sessionID, holderID)
	})
}

// PickCoupon pins or clears the coupon choice.
func PickCoupon(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		var payload pickCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return mgr.PickCoupon(r.Context(), sessionID, holderID, payload.CouponID)
	})
}

// ProceedToPayment moves the session into the paying stage.
func ProceedToPayment(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		return mgr.Proceed(r.Context(), sessionID, holderID)
	})
}

// BackToSelection returns a paying session to the selecting stage.
func BackToSelection(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		return mgr.Back(r.Context(), sessionID, holderID)
	})
}

// ConfirmPayment charges the payment source and finalizes the purchase.
func ConfirmPayment(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return withSession(mgr, logg, func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error) {
		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return mgr.Confirm(r.Context(), sessionID, holderID, payload.SourceID)
	})
}

// CompleteCheckout closes a redeeming session.
func CompleteCheckout(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		holderID, err := holderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.Complete(r.Context(), sessionID, holderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}

// AbandonCheckout tears the session down from any stage.
func AbandonCheckout(mgr *checkout.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		holderID, err := holderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.Abandon(r.Context(), sessionID, holderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "abandoned"})
	}
}

func withSession(mgr *checkout.Manager, logg *logger.Logger, fn func(r *http.Request, sessionID, holderID uuid.UUID) (*checkout.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holderID, err := holderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		snap, err := fn(r, sessionID, holderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}
