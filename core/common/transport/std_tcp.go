package transport

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
)

const (
	StdTCPClient int = iota
	StdTCPServer
)

// StdNetTcpEngine 每个连接一个读goroutine的阻塞式引擎, 主要用于测试和不支持epoll的平台
type StdNetTcpEngine struct {
	mu sync.Mutex
	// 指示是客户端模式还是服务器
	mode      int
	keepAlive bool
	onOpen    func(conn ConnAdapter)
	onMessage func(conn ConnAdapter, data []byte)
	onClose   func(conn ConnAdapter, err error)
	addrs     []string
	listeners []net.Listener
	conns     map[*stdConn]struct{}
	readBuf   sync.Pool
	closed    int32
}

func newStdTcpEngine(mode int) *StdNetTcpEngine {
	return &StdNetTcpEngine{
		mode:  mode,
		conns: make(map[*stdConn]struct{}, 16),
		readBuf: sync.Pool{
			New: func() interface{} {
				tmp := make([]byte, ReadBufferSize)
				return &tmp
			},
		},
		onOpen:    func(conn ConnAdapter) {},
		onMessage: func(conn ConnAdapter, data []byte) {},
		onClose:   func(conn ConnAdapter, err error) {},
	}
}

func NewStdTcpServer(config NetworkServerConfig) ServerBuilder {
	engine := newStdTcpEngine(StdTCPServer)
	engine.addrs = config.Addrs
	engine.keepAlive = config.KeepAlive
	return engine
}

func NewStdTcpClient() ClientBuilder {
	return newStdTcpEngine(StdTCPClient)
}

func (s *StdNetTcpEngine) NewConn(config NetworkClientConfig) (ConnAdapter, error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return nil, errors.New("std-tcp engine already closed")
	}
	conn, err := config.dial()
	if err != nil {
		return nil, err
	}
	if config.KeepAlive {
		setKeepAlive(conn)
	}
	return s.connService(conn), nil
}

func (s *StdNetTcpEngine) Server() ServerEngine {
	return s
}

func (s *StdNetTcpEngine) Client() ClientEngine {
	return s
}

func (s *StdNetTcpEngine) EventDriveInter() EventDriveInter {
	return s
}

// Start 所有的地址都监听成功之后才返回
func (s *StdNetTcpEngine) Start() error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return errors.New("std-tcp engine already closed")
	}
	if s.mode == StdTCPClient {
		return nil
	}
	listeners := make([]net.Listener, 0, len(s.addrs))
	for _, addr := range s.addrs {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return err
		}
		listeners = append(listeners, listener)
	}
	s.mu.Lock()
	s.listeners = listeners
	s.mu.Unlock()
	for _, listener := range listeners {
		go s.accept(listener)
	}
	return nil
}

func (s *StdNetTcpEngine) accept(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&s.closed) == 0 {
				logger.DefaultLogger.Warn("std-tcp engine accept conn failed, err = %v", err)
			}
			return
		}
		if s.keepAlive {
			setKeepAlive(conn)
		}
		s.connService(conn)
	}
}

func (s *StdNetTcpEngine) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, l := range s.listeners {
		addrs = append(addrs, l.Addr())
	}
	return addrs
}

func (s *StdNetTcpEngine) connService(conn net.Conn) *stdConn {
	nc := &stdConn{Conn: conn}
	s.mu.Lock()
	s.conns[nc] = struct{}{}
	s.mu.Unlock()
	s.onOpen(nc)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, nc)
			s.mu.Unlock()
		}()
		for {
			if atomic.LoadInt32(&s.closed) == 1 {
				_ = nc.Close()
				s.onClose(nc, errors.New("std-tcp engine already closed"))
				return
			}
			readBuf := s.readBuf.Get().(*[]byte)
			readN, err := conn.Read(*readBuf)
			if readN > 0 {
				s.onMessage(nc, (*readBuf)[:readN])
			}
			s.readBuf.Put(readBuf)
			if err != nil {
				_ = nc.Close()
				s.onClose(nc, err)
				return
			}
		}
	}()
	return nc
}

// Stop 关闭所有的监听器和连接, 连接的OnClose会在各自的读goroutine中被调用
func (s *StdNetTcpEngine) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return errors.New("std-tcp engine already closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.listeners {
		_ = v.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	return nil
}

func (s *StdNetTcpEngine) OnMessage(f func(conn ConnAdapter, data []byte)) {
	s.onMessage = f
}

func (s *StdNetTcpEngine) OnOpen(f func(conn ConnAdapter)) {
	s.onOpen = f
}

func (s *StdNetTcpEngine) OnClose(f func(conn ConnAdapter, err error)) {
	s.onClose = f
}

type stdConn struct {
	net.Conn
	closeOnce sync.Once
	closeErr  error
}

func (c *stdConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

func setKeepAlive(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(30 * time.Second)
	}
}
