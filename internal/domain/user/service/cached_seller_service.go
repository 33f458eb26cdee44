package service

import (
	"context"
	"errors"
	"time"

	"symbiotic_city/internal/domain/user/model"
	"symbiotic_city/pkg/cache"

	"go.uber.org/zap"
)

// 缓存键常量
const (
	SellerCacheKeyPrefix = "seller_profile:"
	SellerCacheTTL       = 10 * time.Minute
)

// CachedSellerService 带缓存的卖家资料服务
// 资料在每次结算申请时读取，绑定账户后立即失效
type CachedSellerService struct {
	next  SellerService
	cache cache.CacheService
	log   *zap.Logger
}

// NewCachedSellerService 创建带缓存的卖家资料服务
func NewCachedSellerService(next SellerService, c cache.CacheService, log *zap.Logger) SellerService {
	return &CachedSellerService{
		next:  next,
		cache: c,
		log:   log,
	}
}

func (s *CachedSellerService) cacheKey(userID string) string {
	return SellerCacheKeyPrefix + userID
}

// GetProfile 获取卖家资料（带缓存）
func (s *CachedSellerService) GetProfile(ctx context.Context, userID string) (*model.SellerProfile, error) {
	var cached model.SellerProfile
	err := s.cache.Get(ctx, s.cacheKey(userID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("seller profile cache read failed", zap.String("seller_id", userID), zap.Error(err))
	}

	p, err := s.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 缓存失败不影响业务逻辑，只记录日志
	if err := s.cache.Set(ctx, s.cacheKey(userID), p, SellerCacheTTL); err != nil {
		s.log.Warn("seller profile cache write failed", zap.String("seller_id", userID), zap.Error(err))
	}
	return p, nil
}

// LinkPayoutAccount 绑定收款账户（带缓存失效）
func (s *CachedSellerService) LinkPayoutAccount(ctx context.Context, userID, accountID string) (*model.SellerProfile, error) {
	p, err := s.next.LinkPayoutAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, s.cacheKey(userID)); err != nil {
		s.log.Warn("seller profile cache invalidation failed", zap.String("seller_id", userID), zap.Error(err))
	}
	return p, nil
}
