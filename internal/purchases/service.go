package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/pagination"
)

// PurchasedUnitDTO is the redemption-screen view of a bought unit.
type PurchasedUnitDTO struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	Brand        string    `json:"brand"`
	Name         string    `json:"name"`
	Barcode      string    `json:"barcode"`
	FaceValueWon int       `json:"face_value_won"`
	ExpiresAt    time.Time `json:"expires_at"`
	PurchasedAt  time.Time `json:"purchased_at"`
}

// ListResult is one page of the buyer's purchases.
type ListResult struct {
	Units      []PurchasedUnitDTO `json:"units"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// Service exposes purchase history reads.
type Service interface {
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*ListResult, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the purchases read service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*ListResult, error) {
	rows, nextCursor, err := s.repo.ListPurchasedByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing purchases")
	}

	units := make([]PurchasedUnitDTO, 0, len(rows))
	for _, row := range rows {
		units = append(units, toDTO(row))
	}
	return &ListResult{Units: units, NextCursor: nextCursor}, nil
}

func toDTO(row models.PurchasedUnit) PurchasedUnitDTO {
	return PurchasedUnitDTO{
		ID:           row.ID,
		OrderID:      row.OrderID,
		Brand:        row.Brand,
		Name:         row.Name,
		Barcode:      row.Barcode,
		FaceValueWon: row.FaceValueWon,
		ExpiresAt:    row.ExpiresAt,
		PurchasedAt:  row.CreatedAt,
	}
}
