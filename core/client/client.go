package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/common/msgparser"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/container"
	"github.com/nyan233/littlegate/core/middle/codec"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/nyan233/littlegate/core/registry"
	"github.com/nyan233/littlegate/internal/pool"
)

// PushHandler 收到推送时调用, msg的类型为ProtocolId注册的类型
type PushHandler func(msg interface{})

// Client 一个Client对应一条到服务端的连接, 所有的方法都可以被并发调用
type Client struct {
	cfg    *Config
	engine transport.ClientBuilder
	conn   transport.ConnAdapter
	parser *msgparser.Parser
	reg    *registry.Registry
	codec  codec.Codec
	logger logger.LLogger
	// 错误处理接口
	eHandle perror.LErrors
	// mu保护以下三项
	mu      sync.Mutex
	pending map[int32]*pendingCall
	rpcId   int32
	closed  bool
	// 推送的订阅者, 读多写少
	subscribers *container.RCUMap[uint16, PushHandler]
	pushPool    *pool.FixedPool[uint64]
	closeOnce   sync.Once
}

func New(opts ...Option) (*Client, error) {
	config := &Config{}
	WithDefault()(config)
	for _, v := range opts {
		v(config)
	}
	if config.Registry == nil {
		return nil, errors.New("client registry is nil")
	}
	c := &Client{
		cfg:         config,
		reg:         config.Registry,
		codec:       codec.Get(config.Codec),
		logger:      config.Logger,
		eHandle:     config.ErrHandler,
		pending:     make(map[int32]*pendingCall, 64),
		subscribers: container.NewRCUMap[uint16, PushHandler](),
	}
	if c.codec == nil {
		return nil, fmt.Errorf("codec %s not registered", config.Codec)
	}
	if c.logger == nil {
		c.logger = logger.DefaultLogger
	}
	c.parser = msgparser.New(nil, msgparser.DefaultBufferSize, msgparser.WithMaxBodyLength(config.MaxBodyLength))
	c.pushPool = pool.NewFixedPool[uint64](config.PushBufferSize, config.PushWorkers, 0, func(poolId int, err interface{}) {
		var stack [4096]byte
		size := runtime.Stack(stack[:], false)
		c.logger.Error("push handler panic in worker %d : %v\n%s", poolId, err, string(stack[:size]))
	})
	// init engine
	builderFn := transport.Manager.GetClientEngine(config.NetWork)
	if builderFn == nil {
		return nil, fmt.Errorf("network %s not registered", config.NetWork)
	}
	c.engine = builderFn()
	eventD := c.engine.EventDriveInter()
	eventD.OnOpen(c.onOpen)
	eventD.OnMessage(c.onMessage)
	eventD.OnClose(c.onClose)
	if err := c.engine.Client().Start(); err != nil {
		return nil, err
	}
	conn, err := c.engine.Client().NewConn(transport.NetworkClientConfig{
		ServerAddr: config.ServerAddr,
		KeepAlive:  config.KeepAlive,
	})
	if err != nil {
		_ = c.engine.Client().Stop()
		_ = c.pushPool.Stop()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// Send 发送一个请求并等待响应, req在调用期间归Client所有, 返回之后不应该再被使用
// 返回的响应可以通过Registry.Release归还
func (c *Client) Send(ctx context.Context, req interface{}) (rsp interface{}, err perror.LErrorDesc) {
	defer c.reg.Release(req)
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrRequestCanceled, "context canceled before send")
	}
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	var call *pendingCall
	defer func() {
		if e := recover(); e != nil {
			c.logger.Error("send %T panic : %v", req, e)
			rsp = nil
			err = c.eHandle.LWarpErrorDesc(errorhandler.ErrException, fmt.Sprintf("%v", e))
		}
		if call != nil {
			c.remove(call.rpcId)
			releaseCall(call, c.parser.Free)
		}
	}()
	id, body, err := c.encode(req)
	if err != nil {
		return nil, err
	}
	call, err = c.acquire()
	if err != nil {
		return nil, err
	}
	h := packet.Header{
		ProtocolId: id,
		RpcId:      call.rpcId,
		Status:     packet.MagicNumber,
	}
	if c.cfg.Debug {
		c.logger.Debug("send %s", h)
	}
	if _, wErr := c.conn.Write(packet.Encode(h, body)); wErr != nil {
		c.remove(call.rpcId)
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrConnectionClosed, wErr.Error())
	}
	select {
	case complete := <-call.done:
		return c.decode(id, complete)
	case <-ctx.Done():
		if !c.remove(call.rpcId) {
			// 响应或者连接关闭与取消同时发生, 结果已经在done中
			return c.decode(id, <-call.done)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrTimeout,
				fmt.Sprintf("rpc id %d waited %v", call.rpcId, time.Since(call.issuedAt)))
		}
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrRequestCanceled, fmt.Sprintf("rpc id %d", call.rpcId))
	}
}

// Notify 发送推送形式的消息, 服务端不会响应
func (c *Client) Notify(req interface{}) (err perror.LErrorDesc) {
	defer c.reg.Release(req)
	defer func() {
		if e := recover(); e != nil {
			err = c.eHandle.LWarpErrorDesc(errorhandler.ErrException, fmt.Sprintf("%v", e))
		}
	}()
	id, body, err := c.encode(req)
	if err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errorhandler.ErrConnectionClosed
	}
	h := packet.Header{ProtocolId: id, RpcId: packet.PushRpcId, Status: packet.MagicNumber}
	if _, wErr := c.conn.Write(packet.Encode(h, body)); wErr != nil {
		return c.eHandle.LWarpErrorDesc(errorhandler.ErrConnectionClosed, wErr.Error())
	}
	return nil
}

// Subscribe 注册一个ProtocolId的推送回调, 已经存在的回调会被替换
func (c *Client) Subscribe(protocolId uint16, fn PushHandler) error {
	if fn == nil {
		return errors.New("push handler is nil")
	}
	if c.reg.GetType(protocolId) == nil {
		return fmt.Errorf("protocol %d not registered", protocolId)
	}
	c.subscribers.Store(protocolId, fn)
	return nil
}

func (c *Client) Unsubscribe(protocolId uint16) {
	c.subscribers.Delete(protocolId)
}

// Pending 正在等待响应的请求数量
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) LocalAddr() string {
	return c.conn.LocalAddr().String()
}

// Close 等待中的请求会得到ConnectionClosed, 已经收到的推送会被回调完
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
		_ = c.engine.Client().Stop()
		c.resolveAll(c.eHandle.LWarpErrorDesc(errorhandler.ErrConnectionClosed, "client closed"))
		_ = c.pushPool.Stop()
	})
	return err
}

func (c *Client) encode(req interface{}) (uint16, []byte, perror.LErrorDesc) {
	id, ok := c.reg.IdOf(req)
	if !ok {
		return 0, nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrInvalidParam, fmt.Sprintf("unregistered type %T", req))
	}
	body, err := c.codec.Marshal(req)
	if err != nil {
		return 0, nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrCodec, err.Error())
	}
	return id, body, nil
}

// decode 没有载荷的成功响应携带的是请求的ProtocolId, 此时返回nil
func (c *Client) decode(reqId uint16, complete Complete) (interface{}, perror.LErrorDesc) {
	if complete.Error != nil {
		return nil, complete.Error
	}
	pkt := complete.Packet
	defer c.parser.Free(pkt)
	if pkt.Status != perror.Success {
		return nil, errorhandler.FromCode(c.eHandle, int(pkt.Status))
	}
	if pkt.BodyLength == 0 && pkt.ProtocolId == reqId {
		return nil, nil
	}
	rsp := c.reg.Acquire(pkt.ProtocolId)
	if rsp == nil {
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrCodec, fmt.Sprintf("unregistered response protocol %d", pkt.ProtocolId))
	}
	if err := c.codec.Unmarshal(pkt.Body, rsp); err != nil {
		c.reg.Release(rsp)
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrCodec, err.Error())
	}
	return rsp, nil
}

// acquire 分配RpcId与插入pending表在同一个临界区内完成
func (c *Client) acquire() (*pendingCall, perror.LErrorDesc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errorhandler.ErrConnectionClosed
	}
	for {
		if c.rpcId == math.MaxInt32 {
			c.rpcId = 0
		}
		c.rpcId++
		if _, ok := c.pending[c.rpcId]; !ok {
			break
		}
	}
	call := acquireCall(c.rpcId)
	c.pending[call.rpcId] = call
	return call, nil
}

// remove 返回true表示调用者得到了这次请求的所有权
func (c *Client) remove(rpcId int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[rpcId]; !ok {
		return false
	}
	delete(c.pending, rpcId)
	return true
}

// resolve 在锁内写入结果, 保证remove失败时结果已经可读
func (c *Client) resolve(pkt *packet.Packet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	call, ok := c.pending[pkt.RpcId]
	if !ok {
		return false
	}
	delete(c.pending, pkt.RpcId)
	call.done <- Complete{Packet: pkt}
	return true
}

func (c *Client) resolveAll(err perror.LErrorDesc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for rpcId, call := range c.pending {
		delete(c.pending, rpcId)
		call.done <- Complete{Error: err}
	}
}

// Request 类型化的Send, 响应的类型与Rsp不一致时返回CodecError
func Request[Rsp any](ctx context.Context, c *Client, req interface{}) (Rsp, perror.LErrorDesc) {
	var zero Rsp
	rsp, err := c.Send(ctx, req)
	if err != nil {
		return zero, err
	}
	if rsp == nil {
		return zero, nil
	}
	typed, ok := rsp.(Rsp)
	if !ok {
		c.reg.Release(rsp)
		return zero, c.eHandle.LWarpErrorDesc(errorhandler.ErrCodec, fmt.Sprintf("want %T but got %T", zero, rsp))
	}
	return typed, nil
}
