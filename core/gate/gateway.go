package gate

import (
	"context"
	"fmt"

	"github.com/nyan233/littlegate/core/actor"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/nyan233/littlegate/core/registry"
)

// Gateway 每个连接一个, 是连接唯一的写者
// 未登录时在自己的这一轮中处理匿名协议, 登录之后把请求转发给玩家的Actor
type Gateway struct {
	env       *Env
	key       actor.Key
	sessionId uint64
	conn      transport.ConnAdapter
	playerId  string
	closed    bool
	pub       *plugin.Context
}

// SpawnGateway 在连接建立时调用
func SpawnGateway(env *Env, sessionId uint64, conn transport.ConnAdapter) (actor.Key, perror.LErrorDesc) {
	key := GateKey(sessionId)
	g := &Gateway{
		env:       env,
		key:       key,
		sessionId: sessionId,
		conn:      conn,
		pub: &plugin.Context{
			SessionId:  sessionId,
			LocalAddr:  conn.LocalAddr(),
			RemoteAddr: conn.RemoteAddr(),
		},
	}
	return key, env.System.Spawn(key, g)
}

func (g *Gateway) Receive(ctx *actor.Context) (interface{}, error) {
	switch ctx.Method {
	case MethodInbound:
		pkt := ctx.Payload.(*packet.Packet)
		if g.inbound(ctx, pkt) {
			g.env.freePacket(pkt)
		}
		return nil, nil
	case MethodOutbound:
		g.write(ctx.Payload.(*packet.Packet))
		return nil, nil
	case MethodKick:
		g.env.Logger.Info("session %d player %s kicked", g.sessionId, g.playerId)
		g.close()
		return nil, actor.ErrStopActor
	case MethodDisconnect:
		g.close()
		if g.playerId != "" {
			if err := g.env.System.Send(ctx, PlayerKey(g.playerId), MethodUnbindSession, g.sessionId); err != nil {
				g.env.Logger.Warn("session %d unbind player %s failed: %v", g.sessionId, g.playerId, err)
			}
		}
		return nil, actor.ErrStopActor
	default:
		return nil, fmt.Errorf("gateway: unknown method %d", ctx.Method)
	}
}

func (g *Gateway) OnStop(self actor.Key) {
	g.close()
	g.env.Plugins.SessionClose4S(g.pub)
}

// inbound 返回false时数据包的Body可能仍然被玩家的Actor引用, 不能归还
func (g *Gateway) inbound(ctx *actor.Context, pkt *packet.Packet) (release bool) {
	if g.closed {
		return true
	}
	if err := g.env.Plugins.Receive4S(g.pub, pkt.Header); err != nil {
		g.reply(pkt.Header, err)
		return true
	}
	if g.playerId == "" {
		g.unauthenticated(ctx, pkt)
		return true
	}
	result, err := g.env.System.Call(ctx, PlayerKey(g.playerId), MethodForward, &ForwardRequest{
		SessionId: g.sessionId,
		Header:    pkt.Header,
		Body:      pkt.Body,
	})
	if err != nil {
		g.env.Logger.Debug("session %d forward protocol %d failed: %v", g.sessionId, pkt.ProtocolId, err)
		g.reply(pkt.Header, err)
		code := err.Code()
		return code != perror.Timeout && code != perror.RequestCanceled
	}
	if rsp, ok := result.(*packet.Packet); ok && rsp != nil {
		g.write(rsp)
	}
	return true
}

func (g *Gateway) unauthenticated(ctx *actor.Context, pkt *packet.Packet) {
	rCtx := &registry.Context{
		Context:   ctx,
		SessionId: g.sessionId,
		Logger:    g.env.Logger,
		Binder: func(playerId string) perror.LErrorDesc {
			return g.bind(ctx, playerId)
		},
		Pusher: func(playerId string, msg interface{}) perror.LErrorDesc {
			return g.env.Push(ctx, playerId, msg)
		},
	}
	if err := g.env.Dispatcher.Authorize(rCtx, pkt.ProtocolId); err != nil {
		g.reply(pkt.Header, err)
		return
	}
	if rsp := g.env.Dispatcher.Dispatch(rCtx, pkt.Header, pkt.Body); rsp != nil {
		g.write(rsp)
	}
}

// bind 在登录处理器中被调用, 此时处于gateway的这一轮中
func (g *Gateway) bind(ctx context.Context, playerId string) perror.LErrorDesc {
	if g.playerId == playerId {
		return nil
	}
	if g.playerId != "" {
		return g.env.EHandle.LWarpErrorDesc(errorhandler.ErrRepeatLogin,
			fmt.Sprintf("session %d already bound to player %s", g.sessionId, g.playerId))
	}
	_, err := g.env.System.Call(ctx, PlayerKey(playerId), MethodBindSession, &BindRequest{
		Gate:      g.key,
		SessionId: g.sessionId,
	})
	if err != nil {
		return err
	}
	g.playerId = playerId
	g.pub.PlayerId = playerId
	g.env.Logger.Info("session %d login as player %s", g.sessionId, playerId)
	return nil
}

// reply 推送形式的请求出错时不会有响应
func (g *Gateway) reply(h packet.Header, err perror.LErrorDesc) {
	if h.IsPush() {
		g.env.Logger.Debug("session %d push-shaped protocol %d dropped: %v", g.sessionId, h.ProtocolId, err)
		return
	}
	g.write(g.env.Dispatcher.Response(h, nil, err))
}

func (g *Gateway) write(pkt *packet.Packet) {
	if g.closed {
		return
	}
	_, err := g.conn.Write(pkt.Bytes())
	g.env.Plugins.AfterSend4S(g.pub, pkt.Header, err)
	if err != nil {
		g.env.Logger.Warn("session %d write failed: %v", g.sessionId, err)
		g.close()
	}
}

func (g *Gateway) close() {
	if g.closed {
		return
	}
	g.closed = true
	_ = g.conn.Close()
}
