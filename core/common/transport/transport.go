package transport

import (
	"net"
)

const (
	ReadBufferSize     = 16 * 1024
	MaxWriteBufferSize = 1024 * 1024
)

type ServerEngine interface {
	Start() error
	Stop() error
}

// AddrEngine 能够报告实际监听地址的引擎, 监听0端口时用于获取系统分配的端口
type AddrEngine interface {
	Addrs() []net.Addr
}

type ClientEngine interface {
	Start() error
	Stop() error
	NewConn(NetworkClientConfig) (ConnAdapter, error)
}

// ConnAdapter
// 这个接口定义的实现应该是线程安全的, 可以安全地被多个goroutine共享
// 而且其指针不应该随便变动, 至少在OnClose()完成调用之前不可以变动
// Write必须是Sync style的, 即返回时数据已经完整地交给了传输层, 否则会串包
type ConnAdapter interface {
	// Close 不管因为何种原因导致了连接被关闭, 设置的OnClose都应该被调用
	// 从而让上层能够清理与连接绑定的资源
	Close() error
	net.Conn
}

type ServerBuilder interface {
	Server() ServerEngine
	EventDriveInter() EventDriveInter
}

type ClientBuilder interface {
	Client() ClientEngine
	EventDriveInter() EventDriveInter
}

// EventDriveInter 适用于Client&Server的事件驱动接口
type EventDriveInter interface {
	OnMessage(func(conn ConnAdapter, data []byte))
	OnOpen(func(conn ConnAdapter))
	OnClose(func(conn ConnAdapter, err error))
}

type NewServerBuilder func(NetworkServerConfig) ServerBuilder

type NewClientBuilder func() ClientBuilder
