package gifticons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/giftree-kr/giftree-backend/internal/ranking"
	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/pagination"
)

// UnitSummary is the browse-facing view of a sellable unit.
type UnitSummary struct {
	ID              uuid.UUID `json:"id"`
	Brand           string    `json:"brand"`
	Name            string    `json:"name"`
	FaceValueWon    int       `json:"face_value_won"`
	SalePriceWon    int       `json:"sale_price_won"`
	DiscountPercent string    `json:"discount_percent"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// BrowseResult is one ranked page of sellable units.
type BrowseResult struct {
	Units []UnitSummary `json:"units"`
	Total int           `json:"total"`
}

// Service exposes the read side of the gifticon inventory.
type Service interface {
	Browse(ctx context.Context, brand string, limit int) (*BrowseResult, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the browse service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("gifticon repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Browse returns available units for the brand in rank order. Ranking is a
// total order over the brand's live snapshot, so the page is cut after
// ranking, not in the query.
func (s *service) Browse(ctx context.Context, brand string, limit int) (*BrowseResult, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	}

	units, err := s.repo.FindAvailableByBrand(ctx, brand)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing available units")
	}

	ranked := ranking.Rank(units)
	total := len(ranked)

	pageSize := pagination.NormalizeLimit(limit)
	if pageSize < len(ranked) {
		ranked = ranked[:pageSize]
	}

	summaries := make([]UnitSummary, 0, len(ranked))
	for _, unit := range ranked {
		summaries = append(summaries, toSummary(unit))
	}
	return &BrowseResult{Units: summaries, Total: total}, nil
}

func toSummary(unit models.GifticonUnit) UnitSummary {
	return UnitSummary{
		ID:              unit.ID,
		Brand:           unit.Brand,
		Name:            unit.Name,
		FaceValueWon:    unit.FaceValueWon,
		SalePriceWon:    unit.SalePriceWon,
		DiscountPercent: ranking.Efficiency(unit).Mul(decimal.NewFromInt(100)).Round(1).String(),
		ExpiresAt:       unit.ExpiresAt,
	}
}
