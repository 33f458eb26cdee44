package model

import (
	baseModel "symbiotic_city/pkg/model"
)

// SellerProfile 卖家资料
type SellerProfile struct {
	baseModel.BaseModel
	UserID          string `gorm:"type:uuid;unique;not null" json:"user_id"`
	StoreName       string `json:"store_name"`
	StripeAccountID string `json:"stripe_account_id"`
	PayoutsEnabled  bool   `gorm:"not null;default:false" json:"payouts_enabled"`
}

// PayoutReady 是否已完成收款账户绑定
func (p *SellerProfile) PayoutReady() bool {
	return p.StripeAccountID != "" && p.PayoutsEnabled
}
