package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"symbiotic_city/internal/domain/user/model"
	"symbiotic_city/internal/domain/user/repository"
	"symbiotic_city/pkg/apperr"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SellerService 卖家资料服务
type SellerService interface {
	GetProfile(ctx context.Context, userID string) (*model.SellerProfile, error)
	LinkPayoutAccount(ctx context.Context, userID, accountID string) (*model.SellerProfile, error)
}

type sellerService struct {
	repo repository.SellerRepository
	log  *zap.Logger
}

// NewSellerService 创建卖家资料服务
func NewSellerService(repo repository.SellerRepository, log *zap.Logger) SellerService {
	return &sellerService{repo: repo, log: log}
}

// GetProfile 获取卖家资料
func (s *sellerService) GetProfile(ctx context.Context, userID string) (*model.SellerProfile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("seller profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load seller profile: %w", err)
	}
	return p, nil
}

// LinkPayoutAccount 绑定 Stripe 收款账户并开启结算
func (s *sellerService) LinkPayoutAccount(ctx context.Context, userID, accountID string) (*model.SellerProfile, error) {
	accountID = strings.TrimSpace(accountID)
	if !strings.HasPrefix(accountID, "acct_") {
		return nil, apperr.Validation("stripe_account_id must start with acct_")
	}

	n, err := s.repo.UpdatePayoutAccount(ctx, userID, accountID, true)
	if err != nil {
		return nil, fmt.Errorf("update payout account: %w", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("seller profile not found")
	}

	s.log.Info("payout account linked", zap.String("seller_id", userID), zap.String("account_id", accountID))
	return s.GetProfile(ctx, userID)
}
