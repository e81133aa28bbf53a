package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter(t *testing.T) {
	reg := prometheus.NewRegistry()
	exp := NewServer(reg)
	pub := &plugin.Context{SessionId: 1}
	exp.Event4S(plugin.OnOpen)
	h := packet.Header{ProtocolId: 3, BodyLength: 6, RpcId: 1}
	require.Nil(t, exp.Receive4S(pub, h))
	exp.AfterDispatch4S(h, perror.NoLogin, time.Millisecond)
	exp.AfterSend4S(pub, packet.Header{ProtocolId: 3, RpcId: 1, Status: perror.NoLogin}, nil)
	exp.AfterSend4S(pub, packet.Header{ProtocolId: 5, BodyLength: 2}, nil)

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `littlegate_connections 1`)
	assert.Contains(t, text, `littlegate_packets_total{code="NoLogin",protocol="3",type="dispatch"} 1`)
	assert.Contains(t, text, `littlegate_packets_total{code="Success",protocol="5",type="push"} 1`)
	assert.Contains(t, text, `littlegate_traffic_bytes_total{protocol="3",type="recv"} 20`)
	assert.Contains(t, text, `littlegate_dispatch_duration_seconds_count{protocol="3"} 1`)
}
