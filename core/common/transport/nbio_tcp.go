package transport

import (
	"errors"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/lesismal/nbio"
)

// NBioTcpEngine 基于nbio的非阻塞引擎, 服务端默认使用它
type NBioTcpEngine struct {
	started atomic.Bool
	closed  atomic.Bool
	server  *nbio.Engine
	onMsg   func(conn ConnAdapter, bytes []byte)
	onClose func(conn ConnAdapter, err error)
	onOpen  func(conn ConnAdapter)
}

func newNBioTcpEngine(eng *nbio.Engine) *NBioTcpEngine {
	return &NBioTcpEngine{
		server:  eng,
		onOpen:  func(conn ConnAdapter) {},
		onMsg:   func(conn ConnAdapter, bytes []byte) {},
		onClose: func(conn ConnAdapter, err error) {},
	}
}

func NewNBioTcpClient() ClientBuilder {
	return newNBioTcpEngine(nbio.NewEngine(nbio.Config{
		Name:               "LittleGate-TCP-Client",
		NPoller:            runtime.NumCPU(),
		ReadBufferSize:     ReadBufferSize,
		MaxWriteBufferSize: MaxWriteBufferSize,
	}))
}

func NewNBioTcpServer(config NetworkServerConfig) ServerBuilder {
	nConfig := nbio.Config{}
	nConfig.Name = "LittleGate-Server-Tcp"
	nConfig.Network = "tcp"
	nConfig.ReadBufferSize = ReadBufferSize
	nConfig.MaxWriteBufferSize = MaxWriteBufferSize
	nConfig.Addrs = config.Addrs
	return newNBioTcpEngine(nbio.NewEngine(nConfig))
}

func (engine *NBioTcpEngine) NewConn(config NetworkClientConfig) (ConnAdapter, error) {
	netConn, err := config.dial()
	if err != nil {
		return nil, err
	}
	convConn, err := engine.server.AddConn(netConn)
	if err != nil {
		return nil, err
	}
	return (*nTcpConn)(unsafe.Pointer(convConn)), nil
}

func (engine *NBioTcpEngine) EventDriveInter() EventDriveInter {
	return engine
}

func (engine *NBioTcpEngine) Client() ClientEngine {
	return engine
}

func (engine *NBioTcpEngine) Server() ServerEngine {
	return engine
}

func (engine *NBioTcpEngine) OnMessage(f func(conn ConnAdapter, data []byte)) {
	engine.onMsg = f
}

func (engine *NBioTcpEngine) OnOpen(f func(conn ConnAdapter)) {
	engine.onOpen = f
}

func (engine *NBioTcpEngine) OnClose(f func(conn ConnAdapter, err error)) {
	engine.onClose = f
}

func (engine *NBioTcpEngine) Start() error {
	if !engine.started.CompareAndSwap(false, true) {
		return errors.New("nbio engine already started")
	}
	engine.bind()
	return engine.server.Start()
}

func (engine *NBioTcpEngine) bind() {
	server := engine.server
	server.OnOpen(func(c *nbio.Conn) {
		engine.onOpen((*nTcpConn)(unsafe.Pointer(c)))
	})
	server.OnData(func(c *nbio.Conn, data []byte) {
		engine.onMsg((*nTcpConn)(unsafe.Pointer(c)), data)
	})
	server.OnClose(func(c *nbio.Conn, err error) {
		engine.onClose((*nTcpConn)(unsafe.Pointer(c)), err)
	})
}

func (engine *NBioTcpEngine) Stop() error {
	if !engine.closed.CompareAndSwap(false, true) {
		return errors.New("nbio engine already closed")
	}
	engine.server.Stop()
	return nil
}

// nTcpConn 与nbio.Conn的内存布局相同, 用于在回调中零开销地转换
type nTcpConn struct {
	nbio.Conn
}
