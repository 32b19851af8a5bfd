package idgen

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const orderNoLayout = "20060102150405"

var (
	rndMu sync.Mutex
	rnd   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewOrderNumber 商户订单号：本地时间 YYYYMMDDHHMMSS + 3 位随机数(100-999)，共 17 位。
// 同一秒内只有 900 种后缀，高并发下可能冲突，由支付库唯一索引兜底。
func NewOrderNumber() string {
	return orderNumberAt(time.Now())
}

func orderNumberAt(t time.Time) string {
	rndMu.Lock()
	suffix := 100 + rnd.Intn(900)
	rndMu.Unlock()
	return fmt.Sprintf("%s%03d", t.Format(orderNoLayout), suffix)
}
