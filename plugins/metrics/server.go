package metrics

import (
	"time"

	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

// ServerMetricsPlugin 进程内的计数器, 不依赖任何外部的监控系统
type ServerMetricsPlugin struct {
	plugin.AbstractServer
	Call            *CallMetrics
	Push            Gauge
	Conns           Gauge
	UploadTraffic   *TrafficMetrics
	DownloadTraffic *TrafficMetrics
}

func NewServer() *ServerMetricsPlugin {
	return &ServerMetricsPlugin{
		Call:            new(CallMetrics),
		UploadTraffic:   new(TrafficMetrics),
		DownloadTraffic: new(TrafficMetrics),
	}
}

func (s *ServerMetricsPlugin) Event4S(ev plugin.Event) (next bool) {
	switch ev {
	case plugin.OnOpen:
		s.Conns.Add(1)
	case plugin.OnClose:
		s.Conns.Add(-1)
	}
	return true
}

func (s *ServerMetricsPlugin) Receive4S(pub *plugin.Context, h packet.Header) perror.LErrorDesc {
	s.Call.Count.Add(1)
	s.UploadTraffic.Add(int64(packet.HeaderSize) + int64(h.BodyLength))
	return nil
}

func (s *ServerMetricsPlugin) AfterDispatch4S(h packet.Header, code int, cost time.Duration) {
	if code != perror.Success {
		s.Call.Failed.Add(1)
		return
	}
	s.Call.Complete.Add(1)
}

func (s *ServerMetricsPlugin) AfterSend4S(pub *plugin.Context, h packet.Header, err error) {
	if err != nil {
		return
	}
	if h.IsPush() {
		s.Push.Add(1)
	}
	s.DownloadTraffic.Add(int64(packet.HeaderSize) + int64(h.BodyLength))
}
