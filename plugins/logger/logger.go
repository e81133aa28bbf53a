package logger

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

// 没有得到响应的请求超过这个数量时不再记录开始时间
const maxInflight = 1 << 16

// Logger 访问日志, 每个发出的响应/推送对应一行
type Logger struct {
	plugin.AbstractServer
	w        io.Writer
	gwLogger logger.LLogger
	mu       sync.Mutex
	// sessionId -> rpcId -> 收到请求的时间, 会话关闭时整体删除
	inflight map[uint64]map[int32]time.Time
	size     int
}

func New(w io.Writer) *Logger {
	return &Logger{
		w:        w,
		gwLogger: logger.DefaultLogger,
		inflight: make(map[uint64]map[int32]time.Time),
	}
}

func (l *Logger) Setup(a0 logger.LLogger, a1 perror.LErrors) {
	l.gwLogger = a0
}

// Receive4S 推送形式的请求没有响应, 不记录
func (l *Logger) Receive4S(pub *plugin.Context, h packet.Header) perror.LErrorDesc {
	if h.IsPush() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.size >= maxInflight {
		return nil
	}
	session := l.inflight[pub.SessionId]
	if session == nil {
		session = make(map[int32]time.Time)
		l.inflight[pub.SessionId] = session
	}
	if _, ok := session[h.RpcId]; !ok {
		l.size++
	}
	session[h.RpcId] = time.Now()
	return nil
}

// SessionClose4S 丢弃会话中还没有得到响应的请求
func (l *Logger) SessionClose4S(pub *plugin.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.size -= len(l.inflight[pub.SessionId])
	delete(l.inflight, pub.SessionId)
}

func (l *Logger) takeStart(sessionId uint64, rpcId int32) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	session := l.inflight[sessionId]
	start, ok := session[rpcId]
	if !ok {
		return start, false
	}
	l.size--
	if len(session) == 1 {
		delete(l.inflight, sessionId)
	} else {
		delete(session, rpcId)
	}
	return start, true
}

// Inflight 还没有得到响应的请求数量
func (l *Logger) Inflight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

func (l *Logger) AfterSend4S(pub *plugin.Context, h packet.Header, err error) {
	live := time.Now()
	var interval time.Duration
	phase := "Reply"
	if h.IsPush() {
		phase = "Push"
	} else if start, ok := l.takeStart(pub.SessionId, h.RpcId); ok {
		interval = live.Sub(start)
	}
	status := perror.Code(int(h.Status)).String()
	if err != nil {
		status = "WriteFailed"
	}
	player := pub.PlayerId
	if player == "" {
		player = "-"
	}
	_, wErr := fmt.Fprintf(l.w, "[LGATE] | %-5s | %s | %18s | %10s | %8s | %15s | %6d | %s\n",
		phase,
		live.Format("2006/01/02 - 15:04:05"),
		status,
		interval,
		formatSize(packet.HeaderSize+int(h.BodyLength)),
		remoteHost(pub.RemoteAddr),
		h.ProtocolId,
		player)
	if wErr != nil {
		l.gwLogger.Warn("logger write data error : %v", wErr)
	}
}

func formatSize(n int) string {
	const (
		KB = 1024
		MB = KB * 1024
	)
	switch {
	case n < KB:
		return fmt.Sprintf("%dB", n)
	case n < MB:
		return fmt.Sprintf("%.3fKB", float64(n)/KB)
	default:
		return fmt.Sprintf("%.3fMB", float64(n)/MB)
	}
}

func remoteHost(addr net.Addr) string {
	if addr == nil {
		return "-"
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
