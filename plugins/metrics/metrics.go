package metrics

import "sync/atomic"

type CallMetrics struct {
	// 已经收到但是还没有得到结果的请求也计入Count
	Count    atomic.Int64
	Complete atomic.Int64
	Failed   atomic.Int64
}

// LoadAll 已经得到结果的请求数量
func (m *CallMetrics) LoadAll() int64 {
	return m.Complete.Load() + m.Failed.Load()
}

// Gauge 独占一个cache line, 避免多个计数器之间的伪共享
type Gauge struct {
	count atomic.Int64
	_     [128 - 8]byte
}

func (g *Gauge) Add(v int64) {
	g.count.Add(v)
}

func (g *Gauge) Load() int64 {
	return g.count.Load()
}

// TrafficMetrics 以字节为单位统计流量, 包括包头
type TrafficMetrics struct {
	Gauge
}
