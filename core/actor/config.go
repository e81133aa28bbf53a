package actor

import (
	"time"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	logger2 "github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
)

const (
	DefaultMailboxSize = 1024
	DefaultCallTimeout = 5 * time.Second
	DefaultShards      = 16
)

type Config struct {
	// 每个Actor邮箱的容量, 邮箱满了之后的消息会得到ActorUnreachable
	MailboxSize int
	// Call的最长等待时间, 调用者给出的context更短时以调用者的为准
	CallTimeout time.Duration
	// 用于放置Actor的分片数量
	Shards     int
	Logger     logger2.LLogger
	ErrHandler perror.LErrors
}

type Option func(config *Config)

func DirectConfig(uCfg Config) Option {
	return func(config *Config) {
		*config = uCfg
	}
}

func WithDefaultSystem() Option {
	return func(config *Config) {
		WithMailboxSize(DefaultMailboxSize)(config)
		WithCallTimeout(DefaultCallTimeout)(config)
		WithShards(DefaultShards)(config)
		WithLogger(logger2.DefaultLogger)(config)
		WithErrHandler(errorhandler.DefaultErrHandler)(config)
	}
}

func WithMailboxSize(size int) Option {
	return func(config *Config) {
		config.MailboxSize = size
	}
}

func WithCallTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.CallTimeout = timeout
	}
}

func WithShards(n int) Option {
	return func(config *Config) {
		config.Shards = n
	}
}

func WithLogger(logger logger2.LLogger) Option {
	return func(config *Config) {
		config.Logger = logger
	}
}

func WithErrHandler(eh perror.LErrors) Option {
	return func(config *Config) {
		config.ErrHandler = eh
	}
}

func (c *Config) fix() {
	if c.MailboxSize <= 0 {
		c.MailboxSize = DefaultMailboxSize
	}
	// 调用必须是有界的
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.Shards <= 0 {
		c.Shards = DefaultShards
	}
	if c.Logger == nil {
		c.Logger = logger2.DefaultLogger
	}
	if c.ErrHandler == nil {
		c.ErrHandler = errorhandler.DefaultErrHandler
	}
}
