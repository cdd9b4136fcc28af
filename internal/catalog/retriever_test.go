package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSnapshot() *Snapshot {
	return NewSnapshot([]Item{
		{ID: 1, Name: "Gaming Laptop Pro 15", PriceMin: 149900, Category: "laptops", Brand: "Voltix"},
		{ID: 2, Name: "Office Laptop Air", PriceMin: 89900, Category: "laptops", Brand: "Clerion"},
		{ID: 3, Name: "Gaming Mouse RGB", PriceMin: 4900, Category: "accessories", Brand: "Voltix"},
		{ID: 4, Name: "Espresso Machine", PriceMin: 32900, Category: "kitchen", Brand: "Bravia"},
		{ID: 5, Name: "Gaming Laptop Ultra 17", PriceMin: 219900, Category: "laptops", Brand: "Voltix"},
	})
}

func TestRank_Deterministic(t *testing.T) {
	snap := fixtureSnapshot()

	first := snap.Rank("laptop gaming", 3)
	require.Len(t, first, 3)

	// Same ordered result on every call against a fixed snapshot.
	for i := 0; i < 10; i++ {
		again := snap.Rank("laptop gaming", 3)
		assert.Equal(t, first, again)
	}

	// Gaming laptops beat the office laptop; equal scores break on id asc.
	assert.Equal(t, int64(1), first[0].ID)
	assert.Equal(t, int64(5), first[1].ID)
	assert.Equal(t, int64(2), first[2].ID)
}

func TestRank_ZeroOverlapExcluded(t *testing.T) {
	snap := fixtureSnapshot()

	items := snap.Rank("espresso", 5)
	require.Len(t, items, 1)
	assert.Equal(t, "Espresso Machine", items[0].Name)

	assert.Empty(t, snap.Rank("zzzzz nothing", 5))
}

func TestRank_BoundedByK(t *testing.T) {
	snap := fixtureSnapshot()

	items := snap.Rank("gaming laptop", 2)
	assert.Len(t, items, 2)

	assert.Nil(t, snap.Rank("gaming", 0))
}

func TestRank_BrandAndCategoryMatch(t *testing.T) {
	snap := fixtureSnapshot()

	items := snap.Rank("voltix", 5)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.Equal(t, "Voltix", it.Brand)
	}

	items = snap.Rank("kitchen", 5)
	require.Len(t, items, 1)
	assert.Equal(t, int64(4), items[0].ID)
}

func TestRank_ShortWordsIgnored(t *testing.T) {
	snap := fixtureSnapshot()
	// "a" and "rg" are below the minimum word length.
	assert.Empty(t, snap.Rank("a rg", 5))
}

func TestSnapshot_Immutable(t *testing.T) {
	source := []Item{{ID: 1, Name: "Widget"}}
	snap := NewSnapshot(source)

	source[0].Name = "Mutated"
	items := snap.Items()
	assert.Equal(t, "Widget", items[0].Name)

	items[0].Name = "Mutated again"
	assert.Equal(t, "Widget", snap.Items()[0].Name)
}
