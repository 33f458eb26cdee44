package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"symbiotic_city/internal/domain/payment/model"
	"symbiotic_city/internal/domain/payment/repository"
	"symbiotic_city/internal/pkg/lock"
	"symbiotic_city/internal/pkg/notify"
	"symbiotic_city/pkg/apperr"
	"symbiotic_city/pkg/database"
	"symbiotic_city/pkg/metrics"
	"symbiotic_city/pkg/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxPayoutAttempts = 3
	payoutLockTTL     = 30 * time.Second
)

// ErrBelowMinimum 可结算金额低于最低结算金额
var ErrBelowMinimum = errors.New("payout below minimum")

// PayoutAccount 卖家收款账户
type PayoutAccount struct {
	AccountID string
	Enabled   bool
}

// SellerAccounts 查询卖家收款账户，卖家资料不存在时返回 NotFound
type SellerAccounts interface {
	PayoutAccount(ctx context.Context, sellerID string) (*PayoutAccount, error)
}

// PayoutOptions 结算参数
type PayoutOptions struct {
	MinPayoutCents  int64
	PayoutDelayDays int
	DefaultCurrency string
}

// PayoutService 卖家结算
type PayoutService interface {
	RequestPayout(ctx context.Context, sellerID, currency string) (*model.Payout, error)
	ListPayouts(ctx context.Context, sellerID string, page utils.Pagination) ([]model.Payout, int64, error)
	UpdatePayoutStatus(ctx context.Context, payoutID, status string) (*model.Payout, error)
}

type payoutService struct {
	repo       repository.PayoutRepository
	accounts   SellerAccounts
	locker     lock.Locker
	dispatcher notify.Dispatcher
	metrics    *metrics.Collector
	log        *zap.Logger
	opts       PayoutOptions
	now        func() time.Time
}

func NewPayoutService(repo repository.PayoutRepository, accounts SellerAccounts, locker lock.Locker,
	dispatcher notify.Dispatcher, m *metrics.Collector, log *zap.Logger, opts PayoutOptions) PayoutService {
	if locker == nil {
		locker = lock.Noop{}
	}
	if dispatcher == nil {
		dispatcher = notify.Discard{}
	}
	return &payoutService{
		repo:       repo,
		accounts:   accounts,
		locker:     locker,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log,
		opts:       opts,
		now:        time.Now,
	}
}

// RequestPayout 汇总卖家可结算订单生成结算单
// 订单占用由 payout_items 的部分唯一索引保证，Redis 锁只用于减少冲突
func (s *payoutService) RequestPayout(ctx context.Context, sellerID, currency string) (*model.Payout, error) {
	acct, err := s.accounts.PayoutAccount(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if acct.AccountID == "" || !acct.Enabled {
		s.metrics.ObservePayoutRejected("account_not_linked")
		return nil, apperr.PreconditionFailed("payout account is not linked; connect a Stripe account before requesting a payout")
	}

	release, err := s.locker.Acquire(ctx, "payout:"+sellerID, payoutLockTTL)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		return nil, apperr.Conflict("a payout request for this seller is already in progress")
	case err != nil:
		s.log.Warn("payout lock unavailable, continuing without it", zap.String("seller_id", sellerID), zap.Error(err))
		release = func() {}
	}
	defer release()

	var payout *model.Payout
	for attempt := 1; ; attempt++ {
		payout, err = s.createPayout(ctx, sellerID, strings.ToLower(currency))
		if err == nil {
			break
		}
		conflict := database.IsUniqueViolation(err, "uq_payout_items_live_order") || database.IsRetryable(err)
		if conflict && attempt < maxPayoutAttempts {
			s.log.Info("payout claim conflict, retrying", zap.String("seller_id", sellerID), zap.Int("attempt", attempt))
			continue
		}
		if conflict {
			return nil, apperr.Wrap(apperr.KindConflict, "orders were claimed by a concurrent payout, please retry", err)
		}
		if errors.Is(err, ErrBelowMinimum) {
			s.metrics.ObservePayoutRejected("below_minimum")
		}
		return nil, err
	}

	s.metrics.ObservePayout(payout.AmountCents)
	s.log.Info("payout requested",
		zap.String("payout_id", payout.ID),
		zap.String("seller_id", sellerID),
		zap.Int64("amount_cents", payout.AmountCents),
		zap.String("currency", payout.Currency),
		zap.Int("orders", len(payout.OrdersIncluded)))
	s.dispatcher.Dispatch(notify.Notification{
		AccountID: sellerID,
		Title:     "Payout scheduled",
		Body:      fmt.Sprintf("A payout of %s %s is scheduled for %s.", formatCents(payout.AmountCents), strings.ToUpper(payout.Currency), payout.ScheduledDate.Format("2006-01-02")),
		Extra:     map[string]string{"payout_id": payout.ID},
	})
	return payout, nil
}

func (s *payoutService) createPayout(ctx context.Context, sellerID, currency string) (*model.Payout, error) {
	var payout *model.Payout
	err := s.repo.Transaction(ctx, func(tx repository.PayoutRepository) error {
		rows, err := tx.EligibleOrders(ctx, sellerID)
		if err != nil {
			return fmt.Errorf("load eligible orders: %w", err)
		}

		cur, selected := pickCurrency(rows, currency, s.opts.DefaultCurrency)
		var sum int64
		items := make([]model.PayoutItem, 0, len(selected))
		for _, row := range selected {
			sum += row.SellerAmount
			items = append(items, model.PayoutItem{OrderID: row.OrderID, SellerAmount: row.SellerAmount})
		}
		if sum < s.opts.MinPayoutCents {
			return apperr.Wrap(apperr.KindInvalidState,
				fmt.Sprintf("eligible amount %d is below the minimum payout of %d", sum, s.opts.MinPayoutCents), ErrBelowMinimum)
		}

		now := s.now()
		payout = &model.Payout{
			SellerID:      sellerID,
			AmountCents:   sum,
			Currency:      cur,
			Status:        model.PayoutStatusPending,
			PayoutMethod:  model.PayoutMethodStripeTransfer,
			ScheduledDate: now.AddDate(0, 0, s.opts.PayoutDelayDays),
			Items:         items,
		}
		if err := tx.CreatePayout(ctx, payout); err != nil {
			return fmt.Errorf("create payout: %w", err)
		}
		payout.FillOrdersIncluded()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

// pickCurrency 结算单只含一种币种；未指定时取可结算金额最大的币种
func pickCurrency(rows []model.EligibleOrder, want, fallback string) (string, []model.EligibleOrder) {
	totals := make(map[string]int64)
	for _, r := range rows {
		totals[r.Currency] += r.SellerAmount
	}
	if want == "" {
		currencies := make([]string, 0, len(totals))
		for c := range totals {
			currencies = append(currencies, c)
		}
		sort.Slice(currencies, func(i, j int) bool {
			if totals[currencies[i]] == totals[currencies[j]] {
				return currencies[i] < currencies[j]
			}
			return totals[currencies[i]] > totals[currencies[j]]
		})
		if len(currencies) > 0 {
			want = currencies[0]
		} else {
			want = fallback
		}
	}

	selected := make([]model.EligibleOrder, 0, len(rows))
	for _, r := range rows {
		if r.Currency == want {
			selected = append(selected, r)
		}
	}
	return want, selected
}

func (s *payoutService) ListPayouts(ctx context.Context, sellerID string, page utils.Pagination) ([]model.Payout, int64, error) {
	offset, limit := page.GetPageOffset()
	return s.repo.ListPayouts(ctx, sellerID, offset, limit)
}

// UpdatePayoutStatus 推进结算状态，failed 时释放所含订单
func (s *payoutService) UpdatePayoutStatus(ctx context.Context, payoutID, status string) (*model.Payout, error) {
	if !model.IsValidPayoutStatus(status) {
		return nil, apperr.Validation(fmt.Sprintf("unknown payout status %q", status))
	}

	changed := false
	err := s.repo.Transaction(ctx, func(tx repository.PayoutRepository) error {
		p, err := tx.LockPayout(ctx, payoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payout not found")
			}
			return err
		}
		if p.Status == status {
			return nil
		}
		if !model.CanTransitionPayout(p.Status, status) {
			return apperr.InvalidState(fmt.Sprintf("cannot move payout from %s to %s", p.Status, status))
		}

		now := s.now()
		var paidAt *time.Time
		if status == model.PayoutStatusPaid {
			paidAt = &now
		}
		if err := tx.UpdatePayoutStatus(ctx, payoutID, status, paidAt); err != nil {
			return fmt.Errorf("update payout status: %w", err)
		}
		if status == model.PayoutStatusFailed {
			if err := tx.ReleaseItems(ctx, payoutID, now); err != nil {
				return fmt.Errorf("release payout items: %w", err)
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info("payout status updated", zap.String("payout_id", payoutID), zap.String("status", status))
		s.dispatcher.Dispatch(notify.Notification{
			AccountID: p.SellerID,
			Title:     "Payout update",
			Body:      fmt.Sprintf("Your payout of %s %s is now %s.", formatCents(p.AmountCents), strings.ToUpper(p.Currency), status),
			Extra:     map[string]string{"payout_id": p.ID},
		})
	}
	return p, nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
