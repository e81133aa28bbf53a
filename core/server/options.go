package server

import (
	"time"

	"github.com/nyan233/littlegate/core/actor"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	logger2 "github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/common/msgparser"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/gate"
	"github.com/nyan233/littlegate/core/middle/codec"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/registry"
)

type Option func(config *Config)

func DirectConfig(uCfg Config) Option {
	return func(config *Config) {
		*config = uCfg
	}
}

func WithLogger(logger logger2.LLogger) Option {
	return func(config *Config) {
		config.Logger = logger
	}
}

func WithDefaultServer() Option {
	return func(config *Config) {
		WithLogger(logger2.DefaultLogger)(config)
		WithNetwork(transport.NBioTcp)(config)
		WithNoStackTrace()(config)
		WithCodec(codec.DefaultCodec)(config)
		WithMaxBodyLength(msgparser.DefaultMaxBodyLength)(config)
		WithCallTimeout(actor.DefaultCallTimeout)(config)
		WithMailboxSize(actor.DefaultMailboxSize)(config)
		WithShards(actor.DefaultShards)(config)
		WithLoginPolicy(gate.LoginPolicyReject)(config)
	}
}

func WithAddressServer(adds ...string) Option {
	return func(config *Config) {
		config.Address = append(config.Address, adds...)
	}
}

func WithNetwork(scheme string) Option {
	return func(config *Config) {
		config.NetWork = scheme
	}
}

func WithKeepAlive(open bool) Option {
	return func(config *Config) {
		config.KeepAlive = open
	}
}

func WithOpenLogger(ok bool) Option {
	return func(config *Config) {
		if !ok {
			config.Logger = logger2.NilLogger{}
		}
	}
}

func WithPlugin(plg plugin.ServerPlugin) Option {
	return func(config *Config) {
		config.Plugins = append(config.Plugins, plg)
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

func WithRegistry(reg *registry.Registry) Option {
	return func(config *Config) {
		config.Registry = reg
	}
}

func WithCodec(scheme string) Option {
	return func(config *Config) {
		config.Codec = scheme
	}
}

func WithMaxBodyLength(n int32) Option {
	return func(config *Config) {
		config.MaxBodyLength = n
	}
}

func WithCallTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.CallTimeout = timeout
	}
}

func WithMailboxSize(size int) Option {
	return func(config *Config) {
		config.MailboxSize = size
	}
}

func WithShards(n int) Option {
	return func(config *Config) {
		config.Shards = n
	}
}

// WithLoginPolicy 同一个玩家在另一个连接上登录时拒绝还是接管
func WithLoginPolicy(policy gate.LoginPolicy) Option {
	return func(config *Config) {
		config.LoginPolicy = policy
	}
}

func WithDebug(debug bool) Option {
	return func(config *Config) {
		config.Debug = debug
	}
}
