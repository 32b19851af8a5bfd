package idgen

import (
	"log"
)

const defaultNode = "default"

// Init 初始化默认节点（支持多实例部署，每个实例 nodeID 不同）
func Init(nodeID int64) {
	if nodeID < 0 || nodeID > 1023 {
		log.Fatalf("[IDGen] invalid snowflake node id: %d", nodeID)
	}
	if err := InitNode(defaultNode, nodeID); err != nil {
		log.Fatalf("[IDGen] InitNode failed: %v", err)
	}
	log.Printf("[IDGen] snowflake node initialized: nodeID=%d", nodeID)
}
