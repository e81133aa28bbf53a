package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
gate:
  network: std_tcp
  listen: ["127.0.0.1:0"]
  call_timeout: 2s
  login_policy: takeover
log:
  debug: true
  access_log: stdout
metrics:
  listen: 127.0.0.1:9100
limiter:
  packets_per_second: 100
accounts:
  - name: alice
    password: "123"
    nickname: Alice
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "std_tcp", cfg.Gate.Network)
	assert.Equal(t, []string{"127.0.0.1:0"}, cfg.Gate.Listen)
	assert.Equal(t, 2*time.Second, cfg.Gate.CallTimeout)
	assert.Equal(t, "takeover", cfg.Gate.LoginPolicy)
	// 未出现的字段保持默认值
	assert.Equal(t, "json", cfg.Gate.Codec)
	assert.Equal(t, int32(1<<20), cfg.Gate.MaxBodyLength)
	assert.True(t, cfg.Log.Open)
	assert.True(t, cfg.Log.Debug)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 100, cfg.Limiter.PacketsPerSecond)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, Account{Name: "alice", Password: "123", Nickname: "Alice"}, cfg.Accounts[0])
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
	_, err := Parse([]byte(`
gate:
  network: udp
  listen: []
  shards: 0
  login_policy: kick
accounts:
  - name: a
  - name: a
  - name: ""
`))
	require.Error(t, err)
	for _, field := range []string{"gate.network", "gate.listen", "gate.shards", "gate.login_policy", "duplicate name", "name is empty"} {
		assert.Contains(t, err.Error(), field)
	}
	_, err = Parse([]byte("gate: ["))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gated.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	var (
		calls   atomic.Int32
		current atomic.Pointer[Config]
	)
	w, err := NewWatcher(path, logger.NilLogger{}, func(cfg *Config) {
		current.Store(cfg)
		calls.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()

	// 无关的文件不会触发回调
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	// 非法的配置不会替换当前的配置
	require.NoError(t, os.WriteFile(path, []byte("gate:\n  network: udp\n"), 0o644))
	time.Sleep(50 * time.Millisecond)
	if cfg := current.Load(); cfg != nil {
		assert.NotEqual(t, "udp", cfg.Gate.Network)
	}

	require.NoError(t, os.WriteFile(path, []byte("log:\n  open: false\n"), 0o644))
	require.Eventually(t, func() bool {
		cfg := current.Load()
		return cfg != nil && !cfg.Log.Open
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
