package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func product(id string) Product {
	return Product{ID: ProductID(id), Name: "item " + id, PriceCents: 1000}
}

func TestShareList_NewestFirst(t *testing.T) {
	var list ShareList

	list.Share(product("a"))
	list.Share(product("b"))
	list.Share(product("c"))

	items := list.Items()
	assert.Len(t, items, 3)
	assert.Equal(t, ProductID("c"), items[0].ID)
	assert.Equal(t, ProductID("a"), items[2].ID)
}

func TestShareList_NeverExceedsCap(t *testing.T) {
	var list ShareList

	for i := 0; i < 50; i++ {
		list.Share(product(fmt.Sprintf("p%d", i)))
		assert.LessOrEqual(t, list.Len(), MaxSharedProducts)
	}

	items := list.Items()
	assert.Len(t, items, MaxSharedProducts)
	assert.Equal(t, ProductID("p49"), items[0].ID)
	assert.Equal(t, ProductID("p40"), items[MaxSharedProducts-1].ID)
}

func TestShareList_ReshareMovesToFrontWithoutGrowing(t *testing.T) {
	var list ShareList

	list.Share(product("a"))
	list.Share(product("b"))
	list.Share(product("c"))

	list.Share(product("a"))

	items := list.Items()
	assert.Len(t, items, 3)
	assert.Equal(t, ProductID("a"), items[0].ID)
	assert.Equal(t, ProductID("c"), items[1].ID)
	assert.Equal(t, ProductID("b"), items[2].ID)
}

func TestShareList_ReshareUpdatesPayload(t *testing.T) {
	var list ShareList

	list.Share(Product{ID: "a", Name: "old name", PriceCents: 100})
	list.Share(product("b"))
	list.Share(Product{ID: "a", Name: "new name", PriceCents: 200})

	items := list.Items()
	assert.Len(t, items, 2)
	assert.Equal(t, "new name", items[0].Name)
	assert.Equal(t, int64(200), items[0].PriceCents)
}

func TestGuestID_Positive(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Greater(t, int64(GuestID()), int64(0))
	}
}
