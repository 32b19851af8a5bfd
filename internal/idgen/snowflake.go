package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	nodeMap  sync.Map // map[string]*snowflake.Node
	lazyOnce sync.Once
)

// InitNode 初始化指定名称的 Snowflake 节点
func InitNode(name string, nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("InitNode failed: %w", err)
	}
	nodeMap.Store(name, n)
	return nil
}

// NewFrom 生成指定节点的 ID
func NewFrom(name string) (uint64, error) {
	val, ok := nodeMap.Load(name)
	if !ok {
		return 0, fmt.Errorf("snowflake node not initialized: %s", name)
	}
	return uint64(val.(*snowflake.Node).Generate().Int64()), nil
}

// New 默认节点生成器（"default"），未初始化时按节点 0 懒加载
func New() uint64 {
	id, err := NewFrom(defaultNode)
	if err == nil {
		return id
	}
	lazyOnce.Do(func() {
		if _, ok := nodeMap.Load(defaultNode); !ok {
			_ = InitNode(defaultNode, 0)
		}
	})
	id, _ = NewFrom(defaultNode)
	return id
}
