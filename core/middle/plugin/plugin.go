package plugin

import (
	"net"
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

type Event int

const (
	OnOpen Event = iota + 1
	OnMessage
	OnClose
)

func (e Event) String() string {
	switch e {
	case OnOpen:
		return "OnOpen"
	case OnMessage:
		return "OnMessage"
	case OnClose:
		return "OnClose"
	default:
		return "Unknown"
	}
}

// Context 一个连接的公开信息, 插件不应该持有它
type Context struct {
	SessionId  uint64
	PlayerId   string
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

// ServerPlugin 插件的所有方法都可能被多个goroutine并发调用
type ServerPlugin interface {
	Setup(logger logger.LLogger, eh perror.LErrors)
	// Event4S 返回false时连接会被关闭
	Event4S(ev Event) (next bool)
	// Receive4S 在一个完整的数据包被解析出来之后, 交给Actor之前调用
	Receive4S(pub *Context, h packet.Header) perror.LErrorDesc
	// AfterDispatch4S 处理器执行完毕之后调用, code为写入响应的错误码
	AfterDispatch4S(h packet.Header, code int, cost time.Duration)
	// AfterSend4S 响应或推送写入连接之后调用
	AfterSend4S(pub *Context, h packet.Header, err error)
}

// SessionCloser 插件可以选择实现, 在一个会话的最后一次回调之后调用
// 用于清理按SessionId保存的状态
type SessionCloser interface {
	SessionClose4S(pub *Context)
}
