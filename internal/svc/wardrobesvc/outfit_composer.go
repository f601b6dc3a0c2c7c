package wardrobesvc

import (
	"math/rand/v2"

	"github.com/mkrupp/wardrobe/internal/domain"
)

// Composer assembles outfits by picking one item per category.
type Composer struct {
	intN func(n int) int
}

// NewComposer returns a Composer drawing from the process-wide random source.
func NewComposer() *Composer {
	return &Composer{intN: rand.IntN}
}

// NewComposerWithSource returns a Composer whose draws come from intN,
// which must return a value in [0, n).
func NewComposerWithSource(intN func(n int) int) *Composer {
	return &Composer{intN: intN}
}

// Compose returns one slot per category, in category order. A category without
// items yields a nil slot; otherwise every item is equally likely.
func (c *Composer) Compose(itemsByCategory [][]domain.Item) domain.Outfit {
	outfit := make(domain.Outfit, len(itemsByCategory))

	for i, items := range itemsByCategory {
		if len(items) == 0 {
			continue
		}

		item := items[c.intN(len(items))]
		outfit[i] = &item
	}

	return outfit
}
