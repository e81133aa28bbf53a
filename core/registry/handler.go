package registry

import (
	"context"
	"fmt"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
)

// Handler 返回(或者用%w包装了)perror.LErrorDesc时它的错误码会被写入响应, 其它的error被视为Internal
// req来自对象池, 响应编码完成之后就会被回收, 处理器返回之后不能再持有它, 也不能把它交给异步的Push
type Handler interface {
	Handle(ctx *Context, req interface{}) (interface{}, error)
}

// HandlerFunc 将类型化的函数适配为Handler
type HandlerFunc[Req, Rsp any] func(ctx *Context, req Req) (Rsp, error)

func (f HandlerFunc[Req, Rsp]) Handle(ctx *Context, req interface{}) (interface{}, error) {
	typed, ok := req.(Req)
	if !ok {
		return nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrInvalidParam,
			fmt.Sprintf("handler want %T but got %T", *new(Req), req))
	}
	return f(ctx, typed)
}

// Context 是处理器可见的一次请求的上下文
type Context struct {
	context.Context
	SessionId uint64
	// PlayerId 为空表示连接还没有登录
	PlayerId string
	Logger   logger.LLogger
	// 以下两个回调由所在的Actor注入
	Pusher func(playerId string, msg interface{}) perror.LErrorDesc
	Binder func(playerId string) perror.LErrorDesc
}

func (c *Context) Authenticated() bool {
	return c.PlayerId != ""
}

// Push 给当前连接的玩家推送一条消息
func (c *Context) Push(msg interface{}) perror.LErrorDesc {
	if !c.Authenticated() {
		return errorhandler.ErrNoLogin
	}
	if c.Pusher == nil {
		return errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrInternal, "push is unavailable in this context")
	}
	return c.Pusher(c.PlayerId, msg)
}

// Login 将当前连接绑定到playerId, 成功之后后续的请求都会经过这个玩家的Actor
func (c *Context) Login(playerId string) perror.LErrorDesc {
	if playerId == "" {
		return errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrInvalidParam, "player id is empty")
	}
	if c.Binder == nil {
		return errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrInternal, "login is unavailable in this context")
	}
	if err := c.Binder(playerId); err != nil {
		return err
	}
	c.PlayerId = playerId
	return nil
}

func (c *Context) logger() logger.LLogger {
	if c.Logger == nil {
		return logger.DefaultLogger
	}
	return c.Logger
}

// Debug 处理器中的调试日志带上会话信息
func (c *Context) Debug(format string, v ...interface{}) {
	c.logger().Debug("session=%d player=%s "+format, append([]interface{}{c.SessionId, c.PlayerId}, v...)...)
}
