package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/nyan233/littlegate/core/actor"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/common/msgparser"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/container"
	"github.com/nyan233/littlegate/core/dispatch"
	"github.com/nyan233/littlegate/core/gate"
	"github.com/nyan233/littlegate/core/middle/codec"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/nyan233/littlegate/core/registry"
)

type connSourceDesc struct {
	Parser    *msgparser.Parser
	SessionId uint64
	Gate      actor.Key
}

type Server struct {
	// Server Engine
	server transport.ServerEngine
	// 管理的连接与其拥有的资源
	connsSourceDesc container.MutexMap[transport.ConnAdapter, *connSourceDesc]
	// 所有连接的Parser共享的数据包分配器
	allocTor   msgparser.Allocator
	sessionSeq atomic.Uint64
	system     *actor.System
	dispatcher *dispatch.Dispatcher
	env        *gate.Env
	logger     logger.LLogger
	// 注册的插件的管理器
	pManager *plugin.Manager
	// Error Handler
	eHandle perror.LErrors
	config  *Config
	started atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
}

func New(opts ...Option) *Server {
	sc := &Config{}
	WithDefaultServer()(sc)
	for _, v := range opts {
		v(sc)
	}
	server := &Server{
		config:   sc,
		logger:   sc.Logger,
		eHandle:  sc.ErrHandler,
		allocTor: msgparser.NewDefaultAllocator(msgparser.NewPacketPool()),
		done:     make(chan struct{}),
	}
	if server.logger == nil {
		server.logger = logger.DefaultLogger
	}
	if sc.Registry == nil {
		sc.Registry = registry.NewBuilder().MustBuild()
	}
	bodyCodec := codec.Get(sc.Codec)
	if bodyCodec == nil {
		panic(fmt.Sprintf("codec %s not registered", sc.Codec))
	}
	builderFn := transport.Manager.GetServerEngine(sc.NetWork)
	if builderFn == nil {
		panic(fmt.Sprintf("network %s not registered", sc.NetWork))
	}
	builder := builderFn(transport.NetworkServerConfig{
		Addrs:     sc.Address,
		KeepAlive: sc.KeepAlive,
	})
	eventD := builder.EventDriveInter()
	eventD.OnMessage(server.onMessage)
	eventD.OnClose(server.onClose)
	eventD.OnOpen(server.onOpen)
	server.server = builder.Server()
	// init plugin manager
	server.pManager = plugin.NewManager(sc.Plugins)
	server.pManager.Setup(server.logger, server.eHandle)
	server.system = actor.NewSystem(
		actor.WithLogger(server.logger),
		actor.WithErrHandler(server.eHandle),
		actor.WithCallTimeout(sc.CallTimeout),
		actor.WithMailboxSize(sc.MailboxSize),
		actor.WithShards(sc.Shards),
	)
	server.dispatcher = dispatch.New(sc.Registry,
		dispatch.WithCodec(bodyCodec),
		dispatch.WithLogger(server.logger),
		dispatch.WithErrHandler(server.eHandle),
		dispatch.WithObserver(server.pManager.AfterDispatch4S),
	)
	server.env = &gate.Env{
		System:     server.system,
		Dispatcher: server.dispatcher,
		Logger:     server.logger,
		EHandle:    server.eHandle,
		Policy:     sc.LoginPolicy,
		Plugins:    server.pManager,
		FreePacket: server.allocTor.FreePacket,
	}
	server.env.Register()
	return server
}

// Start 监听成功之后返回, 不会阻塞
func (s *Server) Start() error {
	if s.closed.Load() {
		return errors.New("server already stopped")
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("server already started")
	}
	if err := s.server.Start(); err != nil {
		return err
	}
	s.logger.Info("server started on %v network %s login policy %s", s.config.Address, s.config.NetWork, s.config.LoginPolicy)
	return nil
}

// Service 启动并阻塞直到Stop被调用
func (s *Server) Service() error {
	if err := s.Start(); err != nil {
		return err
	}
	<-s.done
	return nil
}

// Stop 关闭所有连接并停止所有的Actor
func (s *Server) Stop() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.New("server already stopped")
	}
	var err error
	if s.started.Load() {
		err = s.server.Stop()
	}
	s.system.Shutdown()
	close(s.done)
	s.logger.Info("server stopped")
	return err
}

// Addrs 监听0端口时返回系统分配的实际地址
func (s *Server) Addrs() []net.Addr {
	if ae, ok := s.server.(transport.AddrEngine); ok {
		if addrs := ae.Addrs(); len(addrs) > 0 {
			return addrs
		}
	}
	addrs := make([]net.Addr, 0, len(s.config.Address))
	for _, addr := range s.config.Address {
		tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
		if err != nil {
			continue
		}
		addrs = append(addrs, tcpAddr)
	}
	return addrs
}

// Push 给玩家推送一条消息, 玩家离线时消息被丢弃
func (s *Server) Push(playerId string, msg interface{}) perror.LErrorDesc {
	return s.env.Push(context.Background(), playerId, msg)
}

// Kick 断开玩家当前的连接, 玩家不在线时返回NoLogin
func (s *Server) Kick(ctx context.Context, playerId string) perror.LErrorDesc {
	return s.env.Kick(ctx, playerId)
}

func (s *Server) System() *actor.System {
	return s.system
}

func (s *Server) Registry() *registry.Registry {
	return s.dispatcher.Registry()
}

// Sessions 当前的连接数量
func (s *Server) Sessions() int {
	return s.connsSourceDesc.Len()
}

func (s *Server) debugPacket(desc *connSourceDesc, pkt *packet.Packet, start time.Time) {
	s.logger.Debug("session %d recv %s parsed in %v", desc.SessionId, pkt.Header, time.Since(start))
}
