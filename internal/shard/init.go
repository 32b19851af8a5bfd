package shard

// NotifyLogTable 网关回调日志基础表名
const NotifyLogTable = "pay_notify_log"

// NewNotifyLogShard 回调日志分表引擎
func NewNotifyLogShard(count int) *ShardEngine {
	if count <= 0 {
		count = 4
	}
	return NewShardEngine(NotifyLogTable, uint32(count))
}
