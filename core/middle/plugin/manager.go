package plugin

import (
	"time"

	"github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

// Manager 按顺序调用所有插件, 注册完成之后是只读的
type Manager struct {
	plugins []ServerPlugin
}

func NewManager(plugins []ServerPlugin) *Manager {
	return &Manager{plugins: append([]ServerPlugin(nil), plugins...)}
}

func (m *Manager) Setup(logger logger.LLogger, eh perror.LErrors) {
	for _, p := range m.plugins {
		p.Setup(logger, eh)
	}
}

func (m *Manager) Size() int {
	return len(m.plugins)
}

func (m *Manager) Event4S(ev Event) (next bool) {
	for _, p := range m.plugins {
		if !p.Event4S(ev) {
			return false
		}
	}
	return true
}

func (m *Manager) Receive4S(pub *Context, h packet.Header) perror.LErrorDesc {
	for _, p := range m.plugins {
		if err := p.Receive4S(pub, h); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) AfterDispatch4S(h packet.Header, code int, cost time.Duration) {
	for _, p := range m.plugins {
		p.AfterDispatch4S(h, code, cost)
	}
}

func (m *Manager) AfterSend4S(pub *Context, h packet.Header, err error) {
	for _, p := range m.plugins {
		p.AfterSend4S(pub, h, err)
	}
}

func (m *Manager) SessionClose4S(pub *Context) {
	for _, p := range m.plugins {
		if closer, ok := p.(SessionCloser); ok {
			closer.SessionClose4S(pub)
		}
	}
}
