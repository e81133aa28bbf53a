package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "littlegate"

// Exporter 把服务端的事件导出为prometheus指标, 由使用者决定在哪里暴露/metrics
type Exporter struct {
	plugin.AbstractServer
	gatherer     prometheus.Gatherer
	conns        prometheus.Gauge
	traffic      *prometheus.CounterVec
	counter      *prometheus.CounterVec
	intervalTime *prometheus.HistogramVec
}

// NewServer reg为nil时使用独立的Registry
func NewServer(reg *prometheus.Registry) *Exporter {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	exp := &Exporter{gatherer: reg}
	exp.conns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections",
		Help:      "当前的连接数量",
	})
	exp.traffic = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "traffic_bytes_total",
		Help:      "服务的出入口流量统计",
	}, []string{"protocol", "type"})
	exp.counter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_total",
		Help:      "数据包的数量, 按照协议与错误码分类",
	}, []string{"protocol", "type", "code"})
	exp.intervalTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "处理器的执行时间",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"protocol"})
	reg.MustRegister(exp.conns, exp.traffic, exp.counter, exp.intervalTime)
	return exp
}

// Handler 用于暴露/metrics
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

func (e *Exporter) Event4S(ev plugin.Event) (next bool) {
	switch ev {
	case plugin.OnOpen:
		e.conns.Inc()
	case plugin.OnClose:
		e.conns.Dec()
	}
	return true
}

func (e *Exporter) Receive4S(pub *plugin.Context, h packet.Header) perror.LErrorDesc {
	protocol := strconv.Itoa(int(h.ProtocolId))
	e.traffic.WithLabelValues(protocol, "recv").Add(float64(packet.HeaderSize + int(h.BodyLength)))
	e.counter.WithLabelValues(protocol, "recv", "").Inc()
	return nil
}

func (e *Exporter) AfterDispatch4S(h packet.Header, code int, cost time.Duration) {
	protocol := strconv.Itoa(int(h.ProtocolId))
	e.counter.WithLabelValues(protocol, "dispatch", perror.Code(code).String()).Inc()
	e.intervalTime.WithLabelValues(protocol).Observe(cost.Seconds())
}

func (e *Exporter) AfterSend4S(pub *plugin.Context, h packet.Header, err error) {
	protocol := strconv.Itoa(int(h.ProtocolId))
	typ := "send"
	if h.IsPush() {
		typ = "push"
	}
	if err != nil {
		e.counter.WithLabelValues(protocol, typ, "failed").Inc()
		return
	}
	e.counter.WithLabelValues(protocol, typ, perror.Code(int(h.Status)).String()).Inc()
	e.traffic.WithLabelValues(protocol, typ).Add(float64(packet.HeaderSize + int(h.BodyLength)))
}
