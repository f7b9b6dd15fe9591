package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartMerge_AccumulatesExistingProduct(t *testing.T) {
	cart := &Cart{}
	cart.Merge(CartItem{ProductID: "p1", Quantity: 2})
	cart.Merge(CartItem{ProductID: "p2", Quantity: 1})
	cart.Merge(CartItem{ProductID: "p1", Quantity: 3})

	assert.Len(t, cart.Items, 2)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 1, cart.Items[1].Quantity)
}

func TestCartRemove_MissingProductIsNoop(t *testing.T) {
	cart := &Cart{Items: []CartItem{{ProductID: "p1", Quantity: 2}}}
	cart.Remove("p2")
	assert.Len(t, cart.Items, 1)

	cart.Remove("p1")
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}

func TestErrors_WrapNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrCartNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrItemNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrProductNotFound, ErrNotFound)
	assert.Equal(t, "item not found in cart", ErrItemNotFound.Error())
	assert.NotErrorIs(t, ErrVersionConflict, ErrNotFound)
}
