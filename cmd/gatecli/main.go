package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/nyan233/littlegate/core/client"
	"github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/internal/gameproto"
	"github.com/nyan233/littlegate/plugins/limiter"
	flag "github.com/spf13/pflag"
)

var (
	serverAddr = flag.StringP("address", "a", "127.0.0.1:9090", "网关地址,Example: 127.0.0.1:9090")
	network    = flag.StringP("network", "n", "nbio_tcp", "传输引擎(nbio_tcp | std_tcp)")
	account    = flag.StringP("account", "u", "alice", "账号")
	password   = flag.StringP("password", "p", "alice123", "密码")
	say        = flag.StringP("say", "s", "hello", "登录之后发送的消息, 为空时不发送")
	to         = flag.StringP("to", "t", "", "消息的接收者, 为空时发送给自己")
	retries    = flag.IntP("retries", "r", 3, "登录失败时的最大重试次数")
	timeout    = flag.DurationP("timeout", "d", 3*time.Second, "单次请求的超时时间")
	wait       = flag.DurationP("wait", "w", 2*time.Second, "发送完成之后等待推送的时间, 0表示直到收到中断信号")
	verbose    = flag.BoolP("verbose", "v", false, "打开客户端日志")
)

func main() {
	flag.Parse()
	logger.SetOpenLogger(*verbose)
	c, rsp, err := loginWithRetry(context.Background(), *retries)
	if err != nil {
		log.Fatalln(err)
	}
	defer c.Close()
	printJson("login", rsp)

	profile, lErr := client.Request[*gameproto.ProfileRsp](context.Background(), c, &gameproto.ProfileReq{})
	if lErr != nil {
		log.Fatalln(lErr)
	}
	printJson("profile", profile)

	if *say != "" {
		if _, lErr := c.Send(context.Background(), &gameproto.SayReq{To: *to, Text: *say}); lErr != nil {
			log.Fatalln(lErr)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *wait)
		defer cancel()
	}
	<-ctx.Done()
}

func dial() (*client.Client, error) {
	c, err := client.New(
		client.WithAddress(*serverAddr),
		client.WithNetWork(*network),
		client.WithRegistry(gameproto.ClientRegistry()),
		client.WithRequestTimeout(*timeout),
		client.WithOpenLogger(*verbose),
	)
	if err != nil {
		return nil, err
	}
	err = c.Subscribe(gameproto.IdNotice, func(msg interface{}) {
		printJson("notice", msg)
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// loginWithRetry 只对超时/限流/连接断开重试, 连接断开时重新拨号
// 每次重试都需要新的请求, Send会在返回之前回收请求对象
func loginWithRetry(ctx context.Context, retries int) (*client.Client, *gameproto.LoginRsp, error) {
	var (
		c       *client.Client
		lastErr error
		backoff = 200 * time.Millisecond
	)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		if c == nil {
			var err error
			c, err = dial()
			if err != nil {
				lastErr = err
				continue
			}
		}
		rsp, lErr := client.Request[*gameproto.LoginRsp](ctx, c, &gameproto.LoginReq{
			Account:  *account,
			Password: *password,
		})
		if lErr == nil {
			return c, rsp, nil
		}
		lastErr = lErr
		switch lErr.Code() {
		case perror.Timeout, limiter.RateLimited:
		case perror.ConnectionClosed:
			_ = c.Close()
			c = nil
		default:
			_ = c.Close()
			return nil, nil, fmt.Errorf("login failed: %w", lErr)
		}
	}
	if c != nil {
		_ = c.Close()
	}
	return nil, nil, fmt.Errorf("login failed after %d retries: %w", retries, lastErr)
}

func printJson(kind string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Printf("%s: %v\n", kind, v)
		return
	}
	fmt.Printf("%s: %s\n", kind, data)
}
