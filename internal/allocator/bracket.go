// Package allocator holds the pure selection algorithms for the checkout flow:
// bracketed recommendations and greedy budget auto-fill. All mutation (holds,
// releases) stays with the caller.
package allocator

import (
	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/db/models"
)

// BuildRecommended keeps the top-ranked unit per price bracket. Input must
// already be in rank order; output preserves that order.
func BuildRecommended(ranked []models.GifticonUnit) []models.GifticonUnit {
	seen := make(map[int]bool, len(ranked))
	recommended := make([]models.GifticonUnit, 0, len(ranked))
	for _, unit := range ranked {
		bracket := unit.PriceBracket()
		if seen[bracket] {
			continue
		}
		seen[bracket] = true
		recommended = append(recommended, unit)
	}
	return recommended
}

// ExpandBracket picks the best-ranked unit in the given bracket that is not
// yet shown, or nil when the bracket has no unseen units left. The pool must
// be in rank order.
func ExpandBracket(pool []models.GifticonUnit, shown map[uuid.UUID]bool, bracket int) *models.GifticonUnit {
	for i := range pool {
		if pool[i].PriceBracket() != bracket {
			continue
		}
		if shown[pool[i].ID] {
			continue
		}
		unit := pool[i]
		return &unit
	}
	return nil
}

// CollapseBracket recomputes one bracket's display list after a deselection.
// loaded is the bracket's units in load order; selected is the selection set
// after the deselection took effect. The kept list is the longest
// fully-selected prefix plus at most one trailing alternative; everything
// after a gap is dropped, selected or not.
func CollapseBracket(loaded []uuid.UUID, selected map[uuid.UUID]bool) (keep, drop []uuid.UUID) {
	cut := 0
	for cut < len(loaded) && selected[loaded[cut]] {
		cut++
	}
	if cut < len(loaded) {
		// One unselected alternative stays visible.
		cut++
	}
	keep = append(keep, loaded[:cut]...)
	drop = append(drop, loaded[cut:]...)
	return keep, drop
}
