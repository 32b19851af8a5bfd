package dao

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	ledgermodel "token-pay-api/internal/model/ledger"
	"token-pay-api/internal/shard"
)

// NotifyLogDao 网关回调日志，按月分表
type NotifyLogDao struct {
	DB    *gorm.DB
	Shard *shard.ShardEngine

	// 已确认存在的分表
	created sync.Map
}

func NewNotifyLogDao(db *gorm.DB, engine *shard.ShardEngine) *NotifyLogDao {
	if db == nil {
		panic("[FATAL] notify log db cannot be nil")
	}
	return &NotifyLogDao{DB: db, Shard: engine}
}

// Insert 写入回调日志，分表不存在时按基础表结构创建
func (r *NotifyLogDao) Insert(ctx context.Context, entry *ledgermodel.NotifyLog) error {
	table := r.Shard.GetTable(entry.OrderNo, entry.CreatedAt)
	if err := r.ensureTable(ctx, table); err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Table(table).Create(entry).Error; err != nil {
		return fmt.Errorf("insert notify log %s: %w", table, err)
	}
	return nil
}

func (r *NotifyLogDao) ensureTable(ctx context.Context, table string) error {
	if _, ok := r.created.Load(table); ok {
		return nil
	}
	if err := r.DB.WithContext(ctx).Table(table).AutoMigrate(&ledgermodel.NotifyLog{}); err != nil {
		return fmt.Errorf("create notify log table %s: %w", table, err)
	}
	r.created.Store(table, struct{}{})
	return nil
}
