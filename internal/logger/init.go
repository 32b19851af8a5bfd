package logger

import "github.com/sirupsen/logrus"

var (
	// App 业务日志
	App *logrus.Logger
	// Access HTTP 访问日志
	Access *logrus.Logger
)

func InitLogger(mode string) {
	level := logrus.InfoLevel
	if mode == "debug" {
		level = logrus.DebugLevel
	}
	App = NewLogger("app", level)
	Access = NewLogger("access", logrus.InfoLevel)
}
