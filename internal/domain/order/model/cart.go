package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CartItem 购物车行。网关 metadata 与下单接口共用同一结构
type CartItem struct {
	SellerID       string `json:"seller_id" binding:"required,uuid" validate:"required,uuid"`
	ProductID      string `json:"product_id" binding:"required,uuid" validate:"required,uuid"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"gte=0" validate:"gte=0"`
	Quantity       int    `json:"quantity" binding:"required,gt=0,lte=1000" validate:"required,gt=0,lte=1000"`
}

// ShippingAddress 收货地址
type ShippingAddress struct {
	Name       string `json:"name" binding:"required" validate:"required"`
	Line1      string `json:"line1" binding:"required" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code" binding:"required" validate:"required"`
	Country    string `json:"country" binding:"required,len=2" validate:"required,len=2"`
}

var validate = validator.New()

// ValidateCart 校验购物车
func ValidateCart(items []CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("cart is empty")
	}
	for i := range items {
		if err := validate.Struct(items[i]); err != nil {
			return fmt.Errorf("cart item %d: %w", i, err)
		}
	}
	return nil
}

// CartTotal 购物车总额
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPriceCents * int64(it.Quantity)
	}
	return total
}

// DecodeCart 严格解析 metadata 中的购物车 JSON，拒绝未知字段
func DecodeCart(raw string) ([]CartItem, error) {
	var items []CartItem
	if err := decodeStrict(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart_items: %w", err)
	}
	if err := ValidateCart(items); err != nil {
		return nil, err
	}
	return items, nil
}

// DecodeShippingAddress 严格解析收货地址
func DecodeShippingAddress(raw string) (*ShippingAddress, error) {
	var addr ShippingAddress
	if err := decodeStrict(raw, &addr); err != nil {
		return nil, fmt.Errorf("decode shipping_address: %w", err)
	}
	if err := validate.Struct(addr); err != nil {
		return nil, fmt.Errorf("shipping_address: %w", err)
	}
	return &addr, nil
}

func decodeStrict(raw string, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

// GroupBySeller 按卖家分组，保持卖家首次出现的顺序
func GroupBySeller(items []CartItem) ([]string, map[string][]CartItem) {
	order := make([]string, 0)
	groups := make(map[string][]CartItem)
	for _, it := range items {
		if _, ok := groups[it.SellerID]; !ok {
			order = append(order, it.SellerID)
		}
		groups[it.SellerID] = append(groups[it.SellerID], it)
	}
	return order, groups
}
