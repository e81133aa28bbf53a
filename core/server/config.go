package server

import (
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/gate"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/registry"
)

type Config struct {
	// 使用的传输协议, 默认nbio_tcp
	NetWork   string
	Address   []string
	KeepAlive bool
	Logger    logger.LLogger
	// 使用的插件
	Plugins    []plugin.ServerPlugin
	ErrHandler perror.LErrors
	// 协议表, 为nil时所有的请求都会得到NoHandler
	Registry *registry.Registry
	// Body使用的编解码器
	Codec string
	// 单个数据包Body的最大长度, 超过的连接会被关闭
	MaxBodyLength int32
	// Actor之间调用的超时时间
	CallTimeout time.Duration
	MailboxSize int
	Shards      int
	LoginPolicy gate.LoginPolicy
	Debug       bool
}
