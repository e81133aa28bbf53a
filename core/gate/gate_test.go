package gate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nyan233/littlegate/core/actor"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/dispatch"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/nyan233/littlegate/core/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	idLogin    = 1
	idLoginRsp = 2
	idEcho     = 3
	idEchoRsp  = 4
	idNotice   = 5
	idSlow     = 6
)

type loginReq struct {
	Account string
}

type loginRsp struct {
	PlayerId string
}

type echoReq struct {
	Text string
}

type echoRsp struct {
	Text string
}

type notice struct {
	Text string
}

type slowReq struct {
	Sleep time.Duration
}

type harness struct {
	env   *Env
	conns map[uint64]*transport.RecordConn
	rpcId int32
}

func newHarness(t *testing.T, policy LoginPolicy) *harness {
	reg, err := registry.NewBuilder().
		Handle(idLogin, new(loginReq), registry.HandlerFunc[*loginReq, *loginRsp](
			func(ctx *registry.Context, req *loginReq) (*loginRsp, error) {
				if err := ctx.Login(req.Account); err != nil {
					return nil, err
				}
				return &loginRsp{PlayerId: ctx.PlayerId}, nil
			}), registry.Anonymous()).
		Message(idLoginRsp, new(loginRsp)).
		Handle(idEcho, new(echoReq), registry.HandlerFunc[*echoReq, *echoRsp](
			func(ctx *registry.Context, req *echoReq) (*echoRsp, error) {
				if err := ctx.Push(&notice{Text: "echo " + req.Text}); err != nil {
					return nil, err
				}
				return &echoRsp{Text: req.Text}, nil
			})).
		Message(idEchoRsp, new(echoRsp)).
		Message(idNotice, new(notice)).
		Handle(idSlow, new(slowReq), registry.HandlerFunc[*slowReq, *echoRsp](
			func(ctx *registry.Context, req *slowReq) (*echoRsp, error) {
				time.Sleep(req.Sleep)
				return &echoRsp{}, nil
			})).
		Build()
	require.NoError(t, err)
	system := actor.NewSystem(
		actor.WithCallTimeout(200*time.Millisecond),
		actor.WithLogger(logger.NilLogger{}),
	)
	t.Cleanup(system.Shutdown)
	env := &Env{
		System:     system,
		Dispatcher: dispatch.New(reg, dispatch.WithLogger(logger.NilLogger{})),
		Logger:     logger.NilLogger{},
		Policy:     policy,
	}
	env.Register()
	return &harness{env: env, conns: make(map[uint64]*transport.RecordConn)}
}

func (h *harness) connect(t *testing.T, sessionId uint64) *transport.RecordConn {
	conn := new(transport.RecordConn)
	_, err := SpawnGateway(h.env, sessionId, conn)
	require.Nil(t, err)
	h.conns[sessionId] = conn
	return conn
}

func (h *harness) send(t *testing.T, sessionId uint64, id uint16, v interface{}) int32 {
	h.rpcId++
	body, err := json.Marshal(v)
	require.NoError(t, err)
	pkt := &packet.Packet{
		Header: packet.Header{ProtocolId: id, BodyLength: int32(len(body)), RpcId: h.rpcId, Status: packet.MagicNumber},
		Body:   body,
	}
	require.Nil(t, h.env.System.Send(context.Background(), GateKey(sessionId), MethodInbound, pkt))
	return h.rpcId
}

// packets 将连接上写入的字节流切分为数据包
func packets(t *testing.T, conn *transport.RecordConn) []*packet.Packet {
	data := conn.Written()
	var pkts []*packet.Packet
	for len(data) >= packet.HeaderSize {
		h, err := packet.DecodeHeader(data)
		require.Nil(t, err)
		end := packet.HeaderSize + int(h.BodyLength)
		require.LessOrEqual(t, end, len(data))
		pkts = append(pkts, &packet.Packet{Header: h, Body: data[packet.HeaderSize:end]})
		data = data[end:]
	}
	require.Empty(t, data)
	return pkts
}

// wait 等待rpcId的响应出现在连接上
func wait(t *testing.T, conn *transport.RecordConn, rpcId int32) *packet.Packet {
	var found *packet.Packet
	require.Eventually(t, func() bool {
		for _, pkt := range packets(t, conn) {
			if pkt.RpcId == rpcId {
				found = pkt
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return found
}

func pushes(t *testing.T, conn *transport.RecordConn) []*packet.Packet {
	var result []*packet.Packet
	for _, pkt := range packets(t, conn) {
		if pkt.IsPush() {
			result = append(result, pkt)
		}
	}
	return result
}

func (h *harness) login(t *testing.T, sessionId uint64, account string) *packet.Packet {
	return wait(t, h.conns[sessionId], h.send(t, sessionId, idLogin, &loginReq{Account: account}))
}

func TestGateUnauthenticated(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	conn := h.connect(t, 1)

	rsp := wait(t, conn, h.send(t, 1, idEcho, &echoReq{Text: "hi"}))
	assert.Equal(t, int32(perror.NoLogin), rsp.Status)
	assert.Empty(t, rsp.Body)

	rsp = wait(t, conn, h.send(t, 1, 9999, &echoReq{}))
	assert.Equal(t, int32(perror.NoHandler), rsp.Status)
	assert.Equal(t, uint16(9999), rsp.ProtocolId)

	// 推送形式的请求出错时没有响应
	pkt := &packet.Packet{Header: packet.Header{ProtocolId: idEcho, Status: packet.MagicNumber}}
	require.Nil(t, h.env.System.Send(context.Background(), GateKey(1), MethodInbound, pkt))
	wait(t, conn, h.send(t, 1, 9999, nil))
	assert.Len(t, packets(t, conn), 3)
}

func TestGateLoginAndForward(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	conn := h.connect(t, 1)

	rsp := h.login(t, 1, "alice")
	require.Equal(t, int32(perror.Success), rsp.Status)
	assert.Equal(t, uint16(idLoginRsp), rsp.ProtocolId)
	var lr loginRsp
	require.NoError(t, json.Unmarshal(rsp.Body, &lr))
	assert.Equal(t, "alice", lr.PlayerId)
	assert.True(t, h.env.System.Active(PlayerKey("alice")))

	rsp = wait(t, conn, h.send(t, 1, idEcho, &echoReq{Text: "hello"}))
	require.Equal(t, int32(perror.Success), rsp.Status)
	var er echoRsp
	require.NoError(t, json.Unmarshal(rsp.Body, &er))
	assert.Equal(t, "hello", er.Text)

	require.Eventually(t, func() bool {
		return len(pushes(t, conn)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	push := pushes(t, conn)[0]
	assert.Equal(t, uint16(idNotice), push.ProtocolId)
	var n notice
	require.NoError(t, json.Unmarshal(push.Body, &n))
	assert.Equal(t, "echo hello", n.Text)

	// 同一个连接重复登录同一个玩家是幂等的
	rsp = h.login(t, 1, "alice")
	assert.Equal(t, int32(perror.Success), rsp.Status)
	// 同一个连接登录另一个玩家
	rsp = h.login(t, 1, "bob")
	assert.Equal(t, int32(perror.RepeatLogin), rsp.Status)
}

func TestGateRepeatLoginRejected(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	h.connect(t, 1)
	conn2 := h.connect(t, 2)

	require.Equal(t, int32(perror.Success), h.login(t, 1, "alice").Status)
	assert.Equal(t, int32(perror.RepeatLogin), h.login(t, 2, "alice").Status)
	assert.False(t, conn2.Closed())
	// 被拒绝的连接依然是未登录的
	rsp := wait(t, conn2, h.send(t, 2, idEcho, &echoReq{}))
	assert.Equal(t, int32(perror.NoLogin), rsp.Status)
}

func TestGateTakeover(t *testing.T) {
	h := newHarness(t, LoginPolicyTakeover)
	conn1 := h.connect(t, 1)
	conn2 := h.connect(t, 2)

	require.Equal(t, int32(perror.Success), h.login(t, 1, "alice").Status)
	require.Equal(t, int32(perror.Success), h.login(t, 2, "alice").Status)
	require.Eventually(t, conn1.Closed, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return !h.env.System.Active(GateKey(1))
	}, 2*time.Second, 5*time.Millisecond)

	require.Nil(t, h.env.Push(context.Background(), "alice", &notice{Text: "to new"}))
	require.Eventually(t, func() bool {
		return len(pushes(t, conn2)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, conn2.Closed())
}

func TestGateDisconnect(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	conn1 := h.connect(t, 1)
	require.Equal(t, int32(perror.Success), h.login(t, 1, "alice").Status)

	require.Nil(t, h.env.System.Send(context.Background(), GateKey(1), MethodDisconnect, nil))
	require.Eventually(t, func() bool {
		return !h.env.System.Active(GateKey(1))
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, conn1.Closed())
	// 玩家的Actor在断线之后依然存在
	assert.True(t, h.env.System.Active(PlayerKey("alice")))

	// 离线时的推送被丢弃
	require.Nil(t, h.env.Push(context.Background(), "alice", &notice{Text: "lost"}))

	conn2 := h.connect(t, 2)
	require.Equal(t, int32(perror.Success), h.login(t, 2, "alice").Status)
	require.Nil(t, h.env.Push(context.Background(), "alice", &notice{Text: "back"}))
	require.Eventually(t, func() bool {
		return len(pushes(t, conn2)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	var n notice
	require.NoError(t, json.Unmarshal(pushes(t, conn2)[0].Body, &n))
	assert.Equal(t, "back", n.Text)
}

type closeRecorder struct {
	plugin.AbstractServer
	closed chan uint64
}

func (r *closeRecorder) SessionClose4S(pub *plugin.Context) {
	r.closed <- pub.SessionId
}

func TestGateSessionCloseHook(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	rec := &closeRecorder{closed: make(chan uint64, 4)}
	h.env.Plugins = plugin.NewManager([]plugin.ServerPlugin{rec})
	conn := h.connect(t, 5)
	rpcId := h.send(t, 5, idEcho, &echoReq{Text: "hi"})
	require.Nil(t, h.env.System.Send(context.Background(), GateKey(5), MethodDisconnect, nil))
	select {
	case id := <-rec.closed:
		assert.Equal(t, uint64(5), id)
	case <-time.After(2 * time.Second):
		t.Fatal("session close hook not called")
	}
	// 钩子在最后一个回合之后调用, 之前的请求已经写出响应
	pkts := packets(t, conn)
	require.Len(t, pkts, 1)
	assert.Equal(t, rpcId, pkts[0].RpcId)
	assert.Equal(t, int32(perror.NoLogin), pkts[0].Status)
	assert.True(t, conn.Closed())
	assert.Empty(t, rec.closed)
}

func TestGateKick(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	conn := h.connect(t, 1)
	require.Equal(t, int32(perror.Success), h.login(t, 1, "alice").Status)

	require.Nil(t, h.env.Kick(context.Background(), "alice"))
	require.Eventually(t, conn.Closed, 2*time.Second, 5*time.Millisecond)
	err := h.env.Kick(context.Background(), "alice")
	require.NotNil(t, err)
	assert.Equal(t, perror.NoLogin, err.Code())
	err = h.env.Kick(context.Background(), "nobody")
	require.NotNil(t, err)
	assert.Equal(t, perror.NoLogin, err.Code())
}

func TestGateForwardTimeout(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	conn := h.connect(t, 1)
	require.Equal(t, int32(perror.Success), h.login(t, 1, "alice").Status)

	rsp := wait(t, conn, h.send(t, 1, idSlow, &slowReq{Sleep: 300 * time.Millisecond}))
	assert.Equal(t, int32(perror.Timeout), rsp.Status)
	time.Sleep(200 * time.Millisecond)
	// 超时之后玩家的Actor依然可用
	rsp = wait(t, conn, h.send(t, 1, idEcho, &echoReq{Text: "after"}))
	assert.Equal(t, int32(perror.Success), rsp.Status)
}

func TestGateSpawnTwice(t *testing.T) {
	h := newHarness(t, LoginPolicyReject)
	h.connect(t, 1)
	_, err := SpawnGateway(h.env, 1, new(transport.RecordConn))
	require.NotNil(t, err)
	assert.Equal(t, perror.ActorUnreachable, err.Code())
	// gate不能被虚拟激活
	err = h.env.System.Send(context.Background(), GateKey(7), MethodKick, nil)
	require.NotNil(t, err)
	assert.Equal(t, errorhandler.ErrActorUnreachable.Code(), err.Code())
}

func TestParseLoginPolicy(t *testing.T) {
	p, ok := ParseLoginPolicy("takeover")
	assert.True(t, ok)
	assert.Equal(t, LoginPolicyTakeover, p)
	assert.Equal(t, "takeover", p.String())
	p, ok = ParseLoginPolicy("")
	assert.True(t, ok)
	assert.Equal(t, LoginPolicyReject, p)
	_, ok = ParseLoginPolicy("replace")
	assert.False(t, ok)
}
