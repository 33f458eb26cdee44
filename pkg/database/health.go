package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PoolSnapshot 连接池快照
type PoolSnapshot struct {
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
}

// HealthReport 依赖健康状况
type HealthReport struct {
	Database string        `json:"database"`
	Redis    string        `json:"redis"`
	Pool     *PoolSnapshot `json:"pool,omitempty"`
}

// Healthy 数据库可用即视为健康，Redis 只用于加锁与缓存
func (r HealthReport) Healthy() bool {
	return r.Database == "ok"
}

// HealthCheck 检查数据库与 Redis 连接
func HealthCheck(ctx context.Context, db *gorm.DB, rdb *redis.Client) HealthReport {
	report := HealthReport{Database: "ok", Redis: "disabled"}

	if snap, err := pingDatabase(ctx, db); err != nil {
		report.Database = err.Error()
	} else {
		report.Pool = snap
	}

	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			report.Redis = err.Error()
		} else {
			report.Redis = "ok"
		}
	}
	return report
}

func pingDatabase(ctx context.Context, db *gorm.DB) (*PoolSnapshot, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	stats := sqlDB.Stats()
	return &PoolSnapshot{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
	}, nil
}
