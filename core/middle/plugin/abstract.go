package plugin

import (
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

// AbstractServer 嵌入它的插件只需要实现自己关心的方法
type AbstractServer struct{}

func (a AbstractServer) Setup(logger logger.LLogger, eh perror.LErrors) {}

func (a AbstractServer) Event4S(ev Event) (next bool) {
	return true
}

func (a AbstractServer) Receive4S(pub *Context, h packet.Header) perror.LErrorDesc {
	return nil
}

func (a AbstractServer) AfterDispatch4S(h packet.Header, code int, cost time.Duration) {}

func (a AbstractServer) AfterSend4S(pub *Context, h packet.Header, err error) {}
