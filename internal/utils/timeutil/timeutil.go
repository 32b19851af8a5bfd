package timeutil

import (
	"time"
)

var shanghai = loadShanghai()

// 容器内缺少 tzdata 时退化为固定 +8
func loadShanghai() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

// FormatShanghai 告警与日志中统一的时间格式
func FormatShanghai(t time.Time) string {
	return t.In(shanghai).Format("2006-01-02 15:04:05")
}
