package shard

import (
	"fmt"
	"time"
)

// ShardEngine 分表路由器，表名 {base}_{YYYYMM}_p{n}
type ShardEngine struct {
	BaseTable  string
	ShardCount uint32
	Strategy   ShardStrategy
}

// NewShardEngine 创建分片引擎
func NewShardEngine(base string, count uint32) *ShardEngine {
	s := NewCRC32Strategy(count)
	return &ShardEngine{
		BaseTable:  base,
		ShardCount: s.ShardCount,
		Strategy:   s,
	}
}

// GetTable 根据订单号和时间获取分表名
func (e *ShardEngine) GetTable(key string, t time.Time) string {
	if t.IsZero() || t.Year() < 2000 {
		t = time.Now()
	}
	return fmt.Sprintf("%s_%s_p%d", e.BaseTable, t.Format("200601"), e.Strategy.GetShard(key))
}

// Tables 某月的全部分表
func (e *ShardEngine) Tables(t time.Time) []string {
	month := t.Format("200601")
	out := make([]string, 0, e.ShardCount)
	for i := uint32(0); i < e.ShardCount; i++ {
		out = append(out, fmt.Sprintf("%s_%s_p%d", e.BaseTable, month, i))
	}
	return out
}
