package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	orderModel "symbiotic_city/internal/domain/order/model"
)

// 网关 metadata 键
const (
	MetaBuyerID         = "buyer_id"
	MetaCartItems       = "cart_items"
	MetaCartParts       = "cart_items_parts"
	MetaShippingAddress = "shipping_address"

	// 网关单个 metadata 值的长度上限
	maxMetadataValueLen = 500
	// 网关 metadata 键数量上限为 50，扣除 buyer_id、shipping_address 与 cart_items_parts
	maxCartParts = 47
)

// cartPartKey 分片键：cart_items_0, cart_items_1, ...
func cartPartKey(i int) string {
	return MetaCartItems + "_" + strconv.Itoa(i)
}

// Encode 序列化为网关 metadata（值只能是字符串）
// 购物车放得下时写入 cart_items，否则按长度上限切分到 cart_items_N
func (m IntentMetadata) Encode() (map[string]string, error) {
	cart, err := json.Marshal(m.CartItems)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}
	out := map[string]string{
		MetaBuyerID: m.BuyerID,
	}

	parts := splitValue(string(cart), maxMetadataValueLen)
	switch {
	case len(parts) == 1:
		out[MetaCartItems] = parts[0]
	case len(parts) > maxCartParts:
		return nil, fmt.Errorf("cart of %d items is too large for payment metadata", len(m.CartItems))
	default:
		out[MetaCartParts] = strconv.Itoa(len(parts))
		for i, p := range parts {
			out[cartPartKey(i)] = p
		}
	}

	if m.ShippingAddress != nil {
		addr, err := json.Marshal(m.ShippingAddress)
		if err != nil {
			return nil, fmt.Errorf("encode shipping address: %w", err)
		}
		out[MetaShippingAddress] = string(addr)
	}
	for k, v := range out {
		if len(v) > maxMetadataValueLen {
			return nil, fmt.Errorf("metadata %s exceeds %d characters", k, maxMetadataValueLen)
		}
	}
	return out, nil
}

// splitValue 按字节上限切分，不拆开多字节字符
func splitValue(s string, limit int) []string {
	if len(s) <= limit {
		return []string{s}
	}
	var parts []string
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

// joinCart 还原购物车 JSON；缺片、片数非法直接拒绝
func joinCart(meta map[string]string) (string, error) {
	raw, ok := meta[MetaCartParts]
	if !ok {
		return meta[MetaCartItems], nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxCartParts {
		return "", fmt.Errorf("metadata %s: invalid part count %q", MetaCartParts, raw)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		part, ok := meta[cartPartKey(i)]
		if !ok || part == "" {
			return "", fmt.Errorf("metadata %s is missing", cartPartKey(i))
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

// DecodeMetadata 严格解析 metadata，未知字段与非法取值直接拒绝
func DecodeMetadata(meta map[string]string) (IntentMetadata, error) {
	var m IntentMetadata
	m.BuyerID = meta[MetaBuyerID]
	if m.BuyerID == "" {
		return m, fmt.Errorf("metadata %s is missing", MetaBuyerID)
	}

	cart, err := joinCart(meta)
	if err != nil {
		return m, err
	}
	items, err := orderModel.DecodeCart(cart)
	if err != nil {
		return m, fmt.Errorf("metadata %s: %w", MetaCartItems, err)
	}
	m.CartItems = items

	if raw := meta[MetaShippingAddress]; raw != "" {
		addr, err := orderModel.DecodeShippingAddress(raw)
		if err != nil {
			return m, fmt.Errorf("metadata %s: %w", MetaShippingAddress, err)
		}
		m.ShippingAddress = addr
	}
	return m, nil
}
