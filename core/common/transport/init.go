package transport

import (
	"github.com/lesismal/nbio/logging"
	"github.com/nyan233/littlegate/core/common/logger"
)

// nbioLogger 把nbio内部的日志转发到gate的日志中
type nbioLogger struct {
	logger.LLogger
}

func (n nbioLogger) SetLevel(lvl int) {}

func init() {
	logging.DefaultLogger = nbioLogger{
		LLogger: logger.DefaultLogger,
	}
}
