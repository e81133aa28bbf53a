package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyan233/littlegate/core/common/config"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/gate"
	"github.com/nyan233/littlegate/core/server"
	"github.com/nyan233/littlegate/internal/gameproto"
	accesslog "github.com/nyan233/littlegate/plugins/logger"
	"github.com/nyan233/littlegate/plugins/limiter"
	"github.com/nyan233/littlegate/plugins/metrics"
	"github.com/nyan233/littlegate/plugins/metrics/prometheus"
	flag "github.com/spf13/pflag"
)

var (
	configPath = flag.StringP("config", "c", "gated.yaml", "配置文件的路径")
	watch      = flag.BoolP("watch", "w", true, "配置文件变化时热更新日志开关与账号表")
)

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalln(err)
	}
	logger.SetOpenLogger(cfg.Log.Open)
	svc := gameproto.NewService(cfg.Accounts)

	opts, closer, err := buildOptions(cfg, svc)
	if err != nil {
		log.Fatalln(err)
	}
	defer closer.Close()
	exporter := prometheus.NewServer(nil)
	stats := metrics.NewServer()
	opts = append(opts, server.WithPlugin(exporter), server.WithPlugin(stats))
	s := server.New(opts...)
	if err := s.Start(); err != nil {
		log.Fatalln(err)
	}
	for _, addr := range s.Addrs() {
		logger.DefaultLogger.Info("gated listen on %s", addr)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, exporter.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.DefaultLogger.Error("metrics server failed: %v", err)
			}
		}()
	}

	if *watch {
		w, err := config.NewWatcher(*configPath, logger.DefaultLogger, func(newCfg *config.Config) {
			logger.SetOpenLogger(newCfg.Log.Open)
			svc.SetAccounts(newCfg.Accounts)
			logger.DefaultLogger.Info("accounts reloaded, size = %d", len(newCfg.Accounts))
		})
		if err != nil {
			logger.DefaultLogger.Warn("config watcher disabled: %v", err)
		} else {
			defer w.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	reportStats(ctx, stats, 30*time.Second)
	logger.DefaultLogger.Info("gated shutting down, sessions = %d", s.Sessions())
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if err := s.Stop(); err != nil {
		logger.DefaultLogger.Error("gated stop failed: %v", err)
	}
}

func reportStats(ctx context.Context, stats *metrics.ServerMetricsPlugin, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.DefaultLogger.Info("stats conns=%d requests=%d complete=%d failed=%d push=%d upload=%dB download=%dB",
				stats.Conns.Load(), stats.Call.Count.Load(), stats.Call.Complete.Load(), stats.Call.Failed.Load(),
				stats.Push.Load(), stats.UploadTraffic.Load(), stats.DownloadTraffic.Load())
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func buildOptions(cfg *config.Config, svc *gameproto.Service) ([]server.Option, io.Closer, error) {
	policy, ok := gate.ParseLoginPolicy(cfg.Gate.LoginPolicy)
	if !ok {
		return nil, nil, errors.New("unknown login policy " + cfg.Gate.LoginPolicy)
	}
	opts := []server.Option{
		server.WithAddressServer(cfg.Gate.Listen...),
		server.WithNetwork(cfg.Gate.Network),
		server.WithCodec(cfg.Gate.Codec),
		server.WithKeepAlive(cfg.Gate.KeepAlive),
		server.WithMaxBodyLength(cfg.Gate.MaxBodyLength),
		server.WithCallTimeout(cfg.Gate.CallTimeout),
		server.WithMailboxSize(cfg.Gate.MailboxSize),
		server.WithShards(cfg.Gate.Shards),
		server.WithLoginPolicy(policy),
		server.WithRegistry(svc.Registry()),
		server.WithDebug(cfg.Log.Debug),
	}
	if cfg.Log.StackTrace {
		opts = append(opts, server.WithStackTrace())
	}
	// 连接数限制需要在其它插件之前拒绝连接
	if cfg.Limiter.MaxConns > 0 {
		opts = append(opts, server.WithPlugin(limiter.NewConnLimiter(cfg.Limiter.MaxConns)))
	}
	if rate := cfg.Limiter.PacketsPerSecond; rate > 0 {
		if cfg.Limiter.Reject {
			opts = append(opts, server.WithPlugin(limiter.NewReject(rate)))
		} else {
			opts = append(opts, server.WithPlugin(limiter.New(rate)))
		}
	}
	var closer io.Closer = nopCloser{}
	switch cfg.Log.AccessLog {
	case "":
	case "stdout":
		opts = append(opts, server.WithPlugin(accesslog.New(os.Stdout)))
	default:
		file, err := os.OpenFile(cfg.Log.AccessLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closer = file
		opts = append(opts, server.WithPlugin(accesslog.New(file)))
	}
	return opts, closer, nil
}
