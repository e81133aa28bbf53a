package transport

import (
	"net"
	"sync"
	"time"
)

// NilConn 提供一个空连接的实现方便测试
type NilConn struct{}

func (nc NilConn) Close() error {
	return nil
}

func (nc NilConn) Read(b []byte) (n int, err error) {
	return len(b), nil
}

func (nc NilConn) Write(b []byte) (n int, err error) {
	return len(b), nil
}

func (nc NilConn) LocalAddr() net.Addr {
	return &net.TCPAddr{
		IP:   net.ParseIP("127.0.0.1"),
		Port: 9090,
	}
}

func (nc NilConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{
		IP:   net.ParseIP("127.0.0.1"),
		Port: 9089,
	}
}

func (nc NilConn) SetDeadline(t time.Time) error {
	return nil
}

func (nc NilConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (nc NilConn) SetWriteDeadline(t time.Time) error {
	return nil
}

// RecordConn 记录所有写入的数据, 用于在测试中观察连接上的输出
type RecordConn struct {
	NilConn
	mu      sync.Mutex
	written []byte
	closed  bool
	// OnWrite 不为nil时在每次写入之后调用, 不持有锁
	OnWrite func(b []byte)
}

func (rc *RecordConn) Write(b []byte) (n int, err error) {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return 0, net.ErrClosed
	}
	rc.written = append(rc.written, b...)
	onWrite := rc.OnWrite
	rc.mu.Unlock()
	if onWrite != nil {
		onWrite(append([]byte(nil), b...))
	}
	return len(b), nil
}

func (rc *RecordConn) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.closed = true
	return nil
}

func (rc *RecordConn) Closed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.closed
}

// Written 返回目前为止写入数据的拷贝
func (rc *RecordConn) Written() []byte {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]byte(nil), rc.written...)
}
