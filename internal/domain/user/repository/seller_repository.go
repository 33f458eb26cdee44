package repository

import (
	"context"

	"symbiotic_city/internal/domain/user/model"

	"gorm.io/gorm"
)

// SellerRepository 卖家资料存储
type SellerRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.SellerProfile, error)
	UpdatePayoutAccount(ctx context.Context, userID, accountID string, enabled bool) (int64, error)
}

type sellerRepository struct {
	db *gorm.DB
}

func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepository{db: db}
}

// GetProfile 根据用户ID获取卖家资料
func (r *sellerRepository) GetProfile(ctx context.Context, userID string) (*model.SellerProfile, error) {
	var profile model.SellerProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdatePayoutAccount 绑定收款账户，返回受影响行数
func (r *sellerRepository) UpdatePayoutAccount(ctx context.Context, userID, accountID string, enabled bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.SellerProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"stripe_account_id": accountID,
			"payouts_enabled":   enabled,
		})
	return res.RowsAffected, res.Error
}
