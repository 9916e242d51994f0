package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

// CouponDTO is the API view of a coupon.
type CouponDTO struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	DiscountType   enums.DiscountType `json:"discount_type"`
	DiscountValue  int                `json:"discount_value"`
	MinPurchaseWon *int               `json:"min_purchase_won,omitempty"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

// Service exposes coupon reads for the API surface.
type Service interface {
	ListUsable(ctx context.Context, ownerID uuid.UUID) ([]CouponDTO, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the coupon service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ListUsable(ctx context.Context, ownerID uuid.UUID) ([]CouponDTO, error) {
	rows, err := s.repo.ListUsable(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing coupons")
	}
	dtos := make([]CouponDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toDTO(row))
	}
	return dtos, nil
}

func toDTO(coupon models.Coupon) CouponDTO {
	return CouponDTO{
		ID:             coupon.ID,
		Name:           coupon.Name,
		Description:    coupon.Description,
		DiscountType:   coupon.DiscountType,
		DiscountValue:  coupon.DiscountValue,
		MinPurchaseWon: coupon.MinPurchaseWon,
		ExpiresAt:      coupon.ExpiresAt,
	}
}
