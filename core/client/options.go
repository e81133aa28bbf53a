package client

import (
	"time"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/common/msgparser"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/middle/codec"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/registry"
)

type Option func(config *Config)

// DirectConfig 这个接口不保证兼容性, 应该谨慎使用
// Config中的内容可能会变动, 或者被修改了语义
func DirectConfig(uCfg Config) Option {
	return func(config *Config) {
		*config = uCfg
	}
}

func WithDefault() Option {
	return func(config *Config) {
		WithCustomLogger(logger.DefaultLogger)(config)
		WithCodec(codec.DefaultCodec)(config)
		WithNetWork(transport.NBioTcp)(config)
		WithNoStackTrace()(config)
		WithMaxBodyLength(msgparser.DefaultMaxBodyLength)(config)
		WithPushWorkers(4, 1024)(config)
	}
}

func WithNetWork(network string) Option {
	return func(config *Config) {
		config.NetWork = network
	}
}

func WithKeepAlive(open bool) Option {
	return func(config *Config) {
		config.KeepAlive = open
	}
}

func WithAddress(addr string) Option {
	return func(config *Config) {
		config.ServerAddr = addr
	}
}

func WithCustomLogger(logger logger.LLogger) Option {
	return func(config *Config) {
		config.Logger = logger
	}
}

func WithOpenLogger(ok bool) Option {
	return func(config *Config) {
		if !ok {
			config.Logger = logger.NilLogger{}
		}
	}
}

func WithCodec(scheme string) Option {
	return func(config *Config) {
		config.Codec = scheme
	}
}

func WithRegistry(reg *registry.Registry) Option {
	return func(config *Config) {
		config.Registry = reg
	}
}

func WithStackTrace() Option {
	return WithErrHandler(errorhandler.NewStackTrace())
}

func WithNoStackTrace() Option {
	return WithErrHandler(errorhandler.DefaultErrHandler)
}

func WithErrHandler(eh perror.LErrors) Option {
	return func(config *Config) {
		config.ErrHandler = eh
	}
}

// WithRequestTimeout 为每一个Send设置最长的等待时间
func WithRequestTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.RequestTimeout = timeout
	}
}

func WithMaxBodyLength(n int32) Option {
	return func(config *Config) {
		config.MaxBodyLength = n
	}
}

func WithPushWorkers(workers, bufSize int) Option {
	return func(config *Config) {
		config.PushWorkers = workers
		config.PushBufferSize = bufSize
	}
}

func WithDebug(debug bool) Option {
	return func(config *Config) {
		config.Debug = debug
	}
}
