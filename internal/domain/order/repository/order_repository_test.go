package repository

import (
	"context"
	"testing"
	"time"

	"symbiotic_city/internal/domain/order/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestDecrementStock(t *testing.T) {
	t.Run("conditional update succeeds", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewLedgerRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1 WHERE id = \$2 AND seller_id = \$3 AND price_cents = \$4 AND stock >= \$5`).
			WithArgs(2, "product-1", "seller-1", int64(1000), 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.DecrementStock(context.Background(), "product-1", "seller-1", 2, 1000)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	cases := []struct {
		name string
		rows *sqlmock.Rows
		want error
	}{
		{
			name: "stock short",
			rows: sqlmock.NewRows([]string{"id", "seller_id", "price_cents", "stock"}).AddRow("product-1", "seller-1", 1000, 1),
			want: ErrInsufficientStock,
		},
		{
			name: "price changed",
			rows: sqlmock.NewRows([]string{"id", "seller_id", "price_cents", "stock"}).AddRow("product-1", "seller-1", 1200, 10),
			want: ErrPriceMismatch,
		},
		{
			name: "product missing or owned by another seller",
			rows: sqlmock.NewRows([]string{"id", "seller_id", "price_cents", "stock"}),
			want: ErrProductNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewLedgerRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1 WHERE`).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectCommit()
			mock.ExpectQuery(`SELECT "id","seller_id","price_cents","stock" FROM "products" WHERE id = \$1 AND seller_id = \$2`).
				WithArgs("product-1", "seller-1", 1).
				WillReturnRows(tc.rows)

			err := repo.DecrementStock(context.Background(), "product-1", "seller-1", 2, 1000)
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductsByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id IN \(\$1,\$2\)`).
		WithArgs("product-1", "product-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "seller_id", "price_cents", "stock"}).
			AddRow("product-1", "seller-1", 1000, 3).
			AddRow("product-2", "seller-2", 500, 0))

	products, err := repo.ProductsByIDs(context.Background(), []string{"product-1", "product-2"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(500), products[1].PriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderNumberExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE order_number = \$1`).
		WithArgs("SC20260101120000ABCDEF12").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.OrderNumberExists(context.Background(), "SC20260101120000ABCDEF12")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPaymentRefundedOnlyTouchesSucceeded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MarkPaymentRefunded(context.Background(), "payment-1", time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentsByIntent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLedgerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "order_id", "seller_id", "payment_intent_id", "amount_cents", "status", "platform_fee", "seller_amount"}).
		AddRow("pay-1", "order-1", "seller-1", "pi_123", 2000, model.PaymentSucceeded, 200, 1800)
	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE payment_intent_id = \$1`).
		WithArgs("pi_123").
		WillReturnRows(rows)

	payments, err := repo.PaymentsByIntent(context.Background(), "pi_123", false)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(1800), payments[0].SellerAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
