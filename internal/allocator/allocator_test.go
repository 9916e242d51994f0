package allocator

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
)

func unit(face, sale int) models.GifticonUnit {
	return models.GifticonUnit{
		ID:           uuid.New(),
		FaceValueWon: face,
		SalePriceWon: sale,
		ExpiresAt:    time.Now().UTC().Add(72 * time.Hour),
	}
}

func TestAutoFillGreedyFirstFit(t *testing.T) {
	t.Parallel()

	ranked := []models.GifticonUnit{
		unit(9000, 8000),
		unit(5000, 4500),
		unit(2000, 1800),
	}

	fill, err := AutoFill(10000, ranked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fill.Selected) != 1 || fill.Selected[0].ID != ranked[0].ID {
		t.Fatalf("expected only the first unit selected, got %d units", len(fill.Selected))
	}
	if fill.TotalSaleWon != 8000 {
		t.Fatalf("expected total sale 8000, got %d", fill.TotalSaleWon)
	}
	if fill.RemainingWon != 1000 {
		t.Fatalf("expected remaining 1000, got %d", fill.RemainingWon)
	}
}

func TestAutoFillNeverExceedsBudget(t *testing.T) {
	t.Parallel()

	ranked := []models.GifticonUnit{
		unit(4000, 3500),
		unit(4000, 3600),
		unit(3000, 2500),
		unit(1000, 900),
	}

	budget := 8000
	fill, err := AutoFill(budget, ranked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := 0
	selected := make(map[uuid.UUID]bool, len(fill.Selected))
	for _, u := range fill.Selected {
		sum += u.FaceValueWon
		selected[u.ID] = true
	}
	if sum > budget {
		t.Fatalf("selected face values %d exceed budget %d", sum, budget)
	}
	if sum+fill.RemainingWon != budget {
		t.Fatalf("remaining %d inconsistent with selected sum %d", fill.RemainingWon, sum)
	}
	// Greedy exhaustiveness: every skipped candidate would have overflowed at
	// its turn, so none can fit in what remains.
	for _, u := range ranked {
		if !selected[u.ID] && u.FaceValueWon <= fill.RemainingWon {
			t.Fatalf("unit with face %d was skipped but fits remaining %d", u.FaceValueWon, fill.RemainingWon)
		}
	}
}

func TestAutoFillRejectsNonPositiveBudget(t *testing.T) {
	t.Parallel()

	for _, budget := range []int{0, -500} {
		_, err := AutoFill(budget, []models.GifticonUnit{unit(1000, 900)})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("budget %d: expected validation error, got %v", budget, err)
		}
	}
}

func TestAutoFillEmptyCandidates(t *testing.T) {
	t.Parallel()

	fill, err := AutoFill(10000, nil)
	if err != nil {
		t.Fatalf("empty candidates must not error: %v", err)
	}
	if len(fill.Selected) != 0 {
		t.Fatalf("expected empty selection, got %d units", len(fill.Selected))
	}
	if fill.RemainingWon != 10000 {
		t.Fatalf("expected untouched budget, got remaining %d", fill.RemainingWon)
	}
}

func TestBuildRecommendedOnePerBracket(t *testing.T) {
	t.Parallel()

	top5000 := unit(5500, 5000)
	dup5000 := unit(5900, 5400)
	top10000 := unit(10500, 9000)

	recommended := BuildRecommended([]models.GifticonUnit{top5000, dup5000, top10000})
	if len(recommended) != 2 {
		t.Fatalf("expected 2 recommended units, got %d", len(recommended))
	}
	if recommended[0].ID != top5000.ID || recommended[1].ID != top10000.ID {
		t.Fatalf("unexpected representatives: %+v", recommended)
	}
}

func TestExpandBracketSkipsShownUnits(t *testing.T) {
	t.Parallel()

	first := unit(5500, 5000)
	second := unit(5900, 5400)
	other := unit(10500, 9000)
	pool := []models.GifticonUnit{first, second, other}

	shown := map[uuid.UUID]bool{first.ID: true}
	next := ExpandBracket(pool, shown, 5000)
	if next == nil || next.ID != second.ID {
		t.Fatalf("expected the unseen sibling, got %+v", next)
	}

	shown[second.ID] = true
	if got := ExpandBracket(pool, shown, 5000); got != nil {
		t.Fatalf("expected nil for exhausted bracket, got %+v", got)
	}
}

func TestCollapseBracketContiguity(t *testing.T) {
	t.Parallel()

	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	loaded := []uuid.UUID{a, b, c, d}

	// Deselecting b leaves a selected; b stays as the alternative, the rest go.
	selected := map[uuid.UUID]bool{a: true, c: true}
	keep, drop := CollapseBracket(loaded, selected)
	if len(keep) != 2 || keep[0] != a || keep[1] != b {
		t.Fatalf("unexpected keep set: %v", keep)
	}
	if len(drop) != 2 || drop[0] != c || drop[1] != d {
		t.Fatalf("expected later-loaded units dropped, got %v", drop)
	}

	// Deselecting the first unit collapses everything behind it.
	keep, drop = CollapseBracket(loaded, map[uuid.UUID]bool{})
	if len(keep) != 1 || keep[0] != a {
		t.Fatalf("unexpected keep set: %v", keep)
	}
	if len(drop) != 3 {
		t.Fatalf("expected 3 dropped, got %v", drop)
	}

	// Fully selected bracket keeps everything.
	keep, drop = CollapseBracket(loaded, map[uuid.UUID]bool{a: true, b: true, c: true, d: true})
	if len(keep) != 4 || len(drop) != 0 {
		t.Fatalf("fully selected bracket must be untouched, keep=%v drop=%v", keep, drop)
	}
}
