package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config gated的文件配置, 未出现的字段使用Default中的值
type Config struct {
	Gate     Gate      `yaml:"gate"`
	Log      Log       `yaml:"log"`
	Metrics  Metrics   `yaml:"metrics"`
	Limiter  Limiter   `yaml:"limiter"`
	Accounts []Account `yaml:"accounts"`
}

type Gate struct {
	Network       string        `yaml:"network"`
	Listen        []string      `yaml:"listen"`
	Codec         string        `yaml:"codec"`
	KeepAlive     bool          `yaml:"keepalive"`
	MaxBodyLength int32         `yaml:"max_body_length"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	MailboxSize   int           `yaml:"mailbox_size"`
	Shards        int           `yaml:"shards"`
	// LoginPolicy reject | takeover
	LoginPolicy string `yaml:"login_policy"`
}

// Log 支持热更新
type Log struct {
	Open       bool   `yaml:"open"`
	Debug      bool   `yaml:"debug"`
	StackTrace bool   `yaml:"stack_trace"`
	AccessLog  string `yaml:"access_log"`
}

type Metrics struct {
	// Listen 为空时不暴露/metrics
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// Limiter 为0的字段表示不限制
type Limiter struct {
	PacketsPerSecond int  `yaml:"packets_per_second"`
	Reject           bool `yaml:"reject"`
	MaxConns         int  `yaml:"max_conns"`
}

// Account 支持热更新
type Account struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Nickname string `yaml:"nickname"`
}

func Default() *Config {
	return &Config{
		Gate: Gate{
			Network:       "nbio_tcp",
			Listen:        []string{"127.0.0.1:9090"},
			Codec:         "json",
			KeepAlive:     true,
			MaxBodyLength: 1 << 20,
			CallTimeout:   5 * time.Second,
			MailboxSize:   1024,
			Shards:        16,
			LoginPolicy:   "reject",
		},
		Log: Log{
			Open: true,
		},
		Metrics: Metrics{
			Path: "/metrics",
		},
	}
}

// Parse 在默认配置的基础上解析data并校验
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: yaml decode failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Validate 返回所有的错误而不是第一个
func (c *Config) Validate() error {
	var errs []error
	switch c.Gate.Network {
	case "nbio_tcp", "std_tcp":
	default:
		errs = append(errs, fmt.Errorf("gate.network: unknown engine %q", c.Gate.Network))
	}
	if len(c.Gate.Listen) == 0 {
		errs = append(errs, errors.New("gate.listen: at least one address is required"))
	}
	if c.Gate.MaxBodyLength <= 0 {
		errs = append(errs, fmt.Errorf("gate.max_body_length: must be positive, got %d", c.Gate.MaxBodyLength))
	}
	if c.Gate.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gate.call_timeout: must be positive, got %s", c.Gate.CallTimeout))
	}
	if c.Gate.MailboxSize <= 0 {
		errs = append(errs, fmt.Errorf("gate.mailbox_size: must be positive, got %d", c.Gate.MailboxSize))
	}
	if c.Gate.Shards <= 0 {
		errs = append(errs, fmt.Errorf("gate.shards: must be positive, got %d", c.Gate.Shards))
	}
	switch c.Gate.LoginPolicy {
	case "", "reject", "takeover":
	default:
		errs = append(errs, fmt.Errorf("gate.login_policy: unknown policy %q", c.Gate.LoginPolicy))
	}
	if c.Limiter.PacketsPerSecond < 0 || c.Limiter.MaxConns < 0 {
		errs = append(errs, errors.New("limiter: limits must not be negative"))
	}
	seen := make(map[string]struct{}, len(c.Accounts))
	for i, acc := range c.Accounts {
		if acc.Name == "" {
			errs = append(errs, fmt.Errorf("accounts[%d]: name is empty", i))
			continue
		}
		if _, ok := seen[acc.Name]; ok {
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate name %q", i, acc.Name))
		}
		seen[acc.Name] = struct{}{}
	}
	return errors.Join(errs...)
}
