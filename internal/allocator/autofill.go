package allocator

import (
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
)

// Fill is the result of a budget auto-fill pass.
type Fill struct {
	Selected     []models.GifticonUnit
	TotalSaleWon int
	RemainingWon int
}

// AutoFill walks the ranked candidates once, selecting a unit whenever its
// face value fits within the remaining budget. Strictly greedy, no
// backtracking. An empty candidate set yields an empty fill, not an error.
func AutoFill(budgetWon int, ranked []models.GifticonUnit) (Fill, error) {
	if budgetWon <= 0 {
		return Fill{}, pkgerrors.New(pkgerrors.CodeValidation, "budget must be a positive amount")
	}

	fill := Fill{RemainingWon: budgetWon}
	for _, unit := range ranked {
		if unit.FaceValueWon > fill.RemainingWon {
			continue
		}
		fill.Selected = append(fill.Selected, unit)
		fill.RemainingWon -= unit.FaceValueWon
		fill.TotalSaleWon += unit.SalePriceWon
	}
	return fill, nil
}
