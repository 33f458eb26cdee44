package repository

import (
	"time"

	"gorm.io/gorm"
)

// OrderFilter 订单查询条件，每个非空字段映射为一个参数化谓词
type OrderFilter struct {
	BuyerID       string
	SellerID      string
	Status        string
	PaymentStatus string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// Scopes 转换为 gorm scope 列表
func (f OrderFilter) Scopes() []func(*gorm.DB) *gorm.DB {
	var scopes []func(*gorm.DB) *gorm.DB
	if f.BuyerID != "" {
		scopes = append(scopes, whereEq("buyer_id", f.BuyerID))
	}
	if f.SellerID != "" {
		scopes = append(scopes, whereEq("seller_id", f.SellerID))
	}
	if f.Status != "" {
		scopes = append(scopes, whereEq("status", f.Status))
	}
	if f.PaymentStatus != "" {
		scopes = append(scopes, whereEq("payment_status", f.PaymentStatus))
	}
	if f.CreatedFrom != nil {
		from := *f.CreatedFrom
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("created_at >= ?", from) })
	}
	if f.CreatedTo != nil {
		to := *f.CreatedTo
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("created_at < ?", to) })
	}
	return scopes
}

// whereEq 列名来自代码常量，值走参数绑定
func whereEq(column string, value interface{}) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", value)
	}
}
