package limiter

import (
	"fmt"

	"github.com/juju/ratelimit"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

// RateLimited 被拒绝的请求得到的错误码
const RateLimited = 1000

var ErrRateLimited perror.LErrorDesc

func init() {
	perror.RegisterCode(RateLimited, "RateLimited")
	ErrRateLimited = errorhandler.DefaultErrHandler.LNewErrorDesc(RateLimited, "RateLimited")
}

// Limiter 所有连接共享一个令牌桶, 每秒补充limit个令牌
type Limiter struct {
	plugin.AbstractServer
	tb     *ratelimit.Bucket
	reject bool
	eh     perror.LErrors
}

// New 令牌不足时阻塞读取, 对整个服务端形成背压
func New(limit int) *Limiter {
	return &Limiter{
		tb: ratelimit.NewBucketWithRate(float64(limit), int64(limit)),
		eh: errorhandler.DefaultErrHandler,
	}
}

// NewReject 令牌不足时请求直接得到RateLimited, 连接不受影响
func NewReject(limit int) *Limiter {
	l := New(limit)
	l.reject = true
	return l
}

func (l *Limiter) Setup(logger logger.LLogger, eh perror.LErrors) {
	if eh != nil {
		l.eh = eh
	}
}

func (l *Limiter) Event4S(ev plugin.Event) (next bool) {
	if ev != plugin.OnMessage || l.reject {
		return true
	}
	l.tb.Wait(1)
	return true
}

func (l *Limiter) Receive4S(pub *plugin.Context, h packet.Header) perror.LErrorDesc {
	if !l.reject {
		return nil
	}
	if l.tb.TakeAvailable(1) == 0 {
		return l.eh.LWarpErrorDesc(ErrRateLimited, fmt.Sprintf("session %d protocol %d", pub.SessionId, h.ProtocolId))
	}
	return nil
}

// Available 桶中剩余的令牌数量
func (l *Limiter) Available() int64 {
	return l.tb.Available()
}
