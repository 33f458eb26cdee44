package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFeeConservation(t *testing.T) {
	for s := int64(0); s <= 5000; s++ {
		fee, seller := SplitFee(s, s, 1000)
		if fee+seller != s {
			t.Fatalf("subtotal %d: fee %d + seller %d != subtotal", s, fee, seller)
		}
		if fee != s/10 {
			t.Fatalf("subtotal %d: fee %d, want floor(10%%) = %d", s, fee, s/10)
		}
	}
}

func TestSplitFeeRoundsDownInSellerFavour(t *testing.T) {
	fee, seller := SplitFee(1999, 1999, 1000)
	assert.Equal(t, int64(199), fee)
	assert.Equal(t, int64(1800), seller)

	fee, seller = SplitFee(9, 9, 1000)
	assert.Equal(t, int64(0), fee)
	assert.Equal(t, int64(9), seller)

	// 含运费时运费全部归卖家
	fee, seller = SplitFee(2000, 2500, 1000)
	assert.Equal(t, int64(200), fee)
	assert.Equal(t, int64(2300), seller)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPending, OrderStatusPending, true},
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusInProduction, true},
		{OrderStatusInProduction, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusInTransit, true},
		{OrderStatusInTransit, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusInTransit, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusInTransit, false},
		{OrderStatusDelivered, OrderStatusConfirmed, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusRefunded, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusRefunded, OrderStatusCancelled, false},
		{OrderStatusConfirmed, OrderStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsValidOrderStatus(t *testing.T) {
	assert.True(t, IsValidOrderStatus(OrderStatusInProduction))
	assert.True(t, IsValidOrderStatus(OrderStatusRefunded))
	assert.False(t, IsValidOrderStatus("completed"))
}

func TestDecodeCart(t *testing.T) {
	const seller = "6f1c1f5e-8b7a-4a53-9a55-0e6f0b0f4c11"
	const product = "0d4a2a9e-5f3b-4f0c-8b8e-2b1c1e7d9a22"

	t.Run("valid", func(t *testing.T) {
		raw := `[{"seller_id":"` + seller + `","product_id":"` + product + `","unit_price_cents":1000,"quantity":2}]`
		items, err := DecodeCart(raw)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, int64(2000), CartTotal(items))
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		raw := `[{"seller_id":"` + seller + `","product_id":"` + product + `","unit_price_cents":1000,"quantity":2,"discount":5}]`
		_, err := DecodeCart(raw)
		assert.Error(t, err)
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		raw := `[{"seller_id":"` + seller + `","product_id":"` + product + `","unit_price_cents":1000,"quantity":0}]`
		_, err := DecodeCart(raw)
		assert.Error(t, err)
	})

	t.Run("empty cart rejected", func(t *testing.T) {
		_, err := DecodeCart(`[]`)
		assert.EqualError(t, err, "cart is empty")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := DecodeCart(`{"seller_id":1}`)
		assert.Error(t, err)
	})
}

func TestDecodeShippingAddress(t *testing.T) {
	addr, err := DecodeShippingAddress(`{"name":"Ada","line1":"1 Green St","city":"Oslo","postal_code":"0150","country":"NO"}`)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", addr.City)

	_, err = DecodeShippingAddress(`{"name":"Ada","city":"Oslo"}`)
	assert.Error(t, err)
}

func TestGroupBySeller(t *testing.T) {
	items := []CartItem{
		{SellerID: "b", ProductID: "p1", Quantity: 1},
		{SellerID: "a", ProductID: "p2", Quantity: 1},
		{SellerID: "b", ProductID: "p3", Quantity: 1},
	}
	order, groups := GroupBySeller(items)
	assert.Equal(t, []string{"b", "a"}, order)
	assert.Len(t, groups["b"], 2)
	assert.Len(t, groups["a"], 1)
}
