package client

import (
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/registry"
)

type Config struct {
	// 服务器的地址
	ServerAddr string
	// 使用的日志器
	Logger logger.LLogger
	// 连接是否使用KeepAlive
	KeepAlive bool
	// 客户端使用的传输协议
	NetWork string
	// 结构化数据编码器的名字, 需要与服务端一致
	Codec string
	// 与服务端共享的协议表
	Registry *registry.Registry
	// 可以生成自定义错误的工厂回调函数
	ErrHandler perror.LErrors
	// 每个请求的最长等待时间, 0表示只受调用者的context控制
	RequestTimeout time.Duration
	// 单个数据包Body的最大长度
	MaxBodyLength int32
	// 推送回调使用的goroutine数量, 相同ProtocolId的推送总是按照到达顺序回调
	PushWorkers int
	// 推送回调的缓冲区大小
	PushBufferSize int
	// 是否启用调试模式
	Debug bool
}
