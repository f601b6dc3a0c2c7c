package wardrobesvc_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/svc/wardrobesvc"
)

func makeItems(category, n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{ID: fmt.Sprintf("c%d-i%d", category, i), CategoryIndex: category}
	}

	return items
}

func TestComposer_EmptyCategories(t *testing.T) {
	t.Parallel()

	composer := wardrobesvc.NewComposer()

	outfit := composer.Compose([][]domain.Item{makeItems(0, 1), nil, makeItems(2, 1), {}})
	require.Len(t, outfit, 4)

	assert.Equal(t, "c0-i0", outfit[0].ID)
	assert.Nil(t, outfit[1])
	assert.Equal(t, "c2-i0", outfit[2].ID)
	assert.Nil(t, outfit[3])

	assert.Empty(t, composer.Compose(nil))
}

func TestComposer_EveryIndexReachable(t *testing.T) {
	t.Parallel()

	const n = 5

	composer := wardrobesvc.NewComposer()
	items := [][]domain.Item{makeItems(0, n)}
	seen := map[string]int{}

	for range 2000 {
		outfit := composer.Compose(items)
		seen[outfit[0].ID]++
	}

	for i := range n {
		assert.Positive(t, seen[fmt.Sprintf("c0-i%d", i)], "index %d never selected", i)
	}
}

func TestComposer_UsesFullRange(t *testing.T) {
	t.Parallel()

	var asked []int

	// always pick the last valid index
	composer := wardrobesvc.NewComposerWithSource(func(n int) int {
		asked = append(asked, n)

		return n - 1
	})

	outfit := composer.Compose([][]domain.Item{makeItems(0, 3), makeItems(1, 1), nil})

	assert.Equal(t, []int{3, 1}, asked)
	assert.Equal(t, "c0-i2", outfit[0].ID)
	assert.Equal(t, "c1-i0", outfit[1].ID)
	assert.Nil(t, outfit[2])
}
