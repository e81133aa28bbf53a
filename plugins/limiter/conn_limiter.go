package limiter

import (
	"sync/atomic"

	"github.com/nyan233/littlegate/core/middle/plugin"
)

// ConnLimiter 限制同时存在的连接数量, 超出的连接在OnOpen时被关闭
type ConnLimiter struct {
	plugin.AbstractServer
	max     int64
	counter atomic.Int64
}

func NewConnLimiter(max int) *ConnLimiter {
	return &ConnLimiter{max: int64(max)}
}

func (l *ConnLimiter) Event4S(ev plugin.Event) (next bool) {
	switch ev {
	case plugin.OnOpen:
		for {
			cur := l.counter.Load()
			if cur >= l.max {
				return false
			}
			if l.counter.CompareAndSwap(cur, cur+1) {
				return true
			}
		}
	case plugin.OnClose:
		l.counter.Add(-1)
	}
	return true
}

func (l *ConnLimiter) Len() int64 {
	return l.counter.Load()
}
