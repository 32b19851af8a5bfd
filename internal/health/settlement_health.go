package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	rediskey "token-pay-api/internal/types/redis-key"
)

var ErrDegraded = errors.New("settlement success rate below threshold")

// SettlementHealth 多实例共享的入账成功率，低于阈值时熔断补偿扫描
type SettlementHealth struct {
	Redis     *redis.Client
	Strategy  SuccessRateStrategy
	Threshold float64 // 熔断阈值，例如 60.0
	TTL       time.Duration
}

func NewSettlementHealth(rdb *redis.Client) *SettlementHealth {
	return &SettlementHealth{
		Redis:     rdb,
		Strategy:  &EWMAStrategy{Alpha: 0.1},
		Threshold: 60,
		TTL:       10 * time.Minute,
	}
}

// Record 记录一次入账结果
func (m *SettlementHealth) Record(ctx context.Context, success bool) error {
	currentRate, err := m.Redis.Get(ctx, rediskey.SettlementSuccessRateKey).Float64()
	if err != nil {
		currentRate = 100.0
	}

	newRate := m.Strategy.Update(currentRate, success)
	switch {
	case !success && newRate < m.Threshold:
		// 熔断标记，TTL 到期后半开
		if err := m.Redis.Set(ctx, rediskey.SettlementDegradedKey, 1, m.TTL).Err(); err != nil {
			return err
		}
	case newRate >= m.Threshold:
		m.Redis.Del(ctx, rediskey.SettlementDegradedKey)
	}

	// 更新成功率缓存
	return m.Redis.Set(ctx, rediskey.SettlementSuccessRateKey, newRate, m.TTL).Err()
}

// Rate 当前成功率，无记录时为 100
func (m *SettlementHealth) Rate(ctx context.Context) float64 {
	rate, err := m.Redis.Get(ctx, rediskey.SettlementSuccessRateKey).Float64()
	if err != nil {
		return 100
	}
	return rate
}

// Degraded 是否处于熔断状态；Redis 不可用时视为正常
func (m *SettlementHealth) Degraded(ctx context.Context) bool {
	val, err := m.Redis.Get(ctx, rediskey.SettlementDegradedKey).Int()
	return err == nil && val == 1
}

// Check 供 /healthz 使用
func (m *SettlementHealth) Check(ctx context.Context) error {
	if m.Degraded(ctx) {
		return fmt.Errorf("%w: %.1f%%", ErrDegraded, m.Rate(ctx))
	}
	return nil
}
