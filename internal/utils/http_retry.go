package utils

import (
	"context"
	"fmt"
	"time"
)

// DoWithRetry 执行带重试逻辑的函数
// retryIf 为空时任何错误都重试；否则仅在 retryIf 返回 true 时重试
func DoWithRetry(ctx context.Context, maxRetries int, interval time.Duration, fn func() error, retryIf ...func(error) bool) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if len(retryIf) > 0 && !retryIf[0](err) {
			return err
		}

		// 最后一次失败则直接返回
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("上下文已取消或超时: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return err
}
