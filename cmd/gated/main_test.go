package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nyan233/littlegate/core/client"
	"github.com/nyan233/littlegate/core/common/config"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/server"
	"github.com/nyan233/littlegate/internal/gameproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Gate.Network = transport.StdTcp
	cfg.Gate.Listen = []string{"127.0.0.1:0"}
	cfg.Accounts = []config.Account{{Name: "alice", Password: "a1", Nickname: "Alice"}}
	return cfg
}

func TestBuildOptionsAccessLogFile(t *testing.T) {
	cfg := testConfig()
	cfg.Log.AccessLog = filepath.Join(t.TempDir(), "access.log")
	svc := gameproto.NewService(cfg.Accounts)
	opts, closer, err := buildOptions(cfg, svc)
	require.NoError(t, err)
	defer closer.Close()

	s := server.New(append(opts, server.WithLogger(logger.NilLogger{}))...)
	require.NoError(t, s.Start())
	defer s.Stop()
	c, err := client.New(
		client.WithAddress(s.Addrs()[0].String()),
		client.WithNetWork(transport.StdTcp),
		client.WithRegistry(gameproto.ClientRegistry()),
		client.WithOpenLogger(false),
		client.WithRequestTimeout(3*time.Second),
	)
	require.NoError(t, err)
	defer c.Close()
	for seq := int64(1); seq <= 2; seq++ {
		ping, rErr := client.Request[*gameproto.PingRsp](context.Background(), c, &gameproto.PingReq{Seq: seq})
		require.Nil(t, rErr)
		assert.Equal(t, seq, ping.Seq)
	}

	var lines []string
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.Log.AccessLog)
		if err != nil {
			return false
		}
		lines = strings.Split(strings.TrimSpace(string(data)), "\n")
		return len(lines) == 2
	}, 2*time.Second, 10*time.Millisecond)
	for _, line := range lines {
		assert.Contains(t, line, "[LGATE] | Reply")
		assert.Contains(t, line, "Success")
		assert.Contains(t, line, "127.0.0.1")
	}
}

func TestBuildOptions(t *testing.T) {
	svc := gameproto.NewService(nil)
	cfg := testConfig()
	base, closer, err := buildOptions(cfg, svc)
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	cfg.Log.AccessLog = "stdout"
	cfg.Limiter.MaxConns = 10
	cfg.Limiter.PacketsPerSecond = 100
	opts, closer, err := buildOptions(cfg, svc)
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	assert.Len(t, opts, len(base)+3)

	cfg.Log.AccessLog = filepath.Join(t.TempDir(), "missing", "access.log")
	_, _, err = buildOptions(cfg, svc)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Gate.LoginPolicy = "kick-everyone"
	_, _, err = buildOptions(cfg, svc)
	assert.Error(t, err)
}
