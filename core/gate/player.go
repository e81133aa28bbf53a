package gate

import (
	"fmt"

	"github.com/nyan233/littlegate/core/actor"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/registry"
)

// Player 玩家的持久Actor, 连接断开之后依然存在
// 已登录连接上的所有请求都在它的这一轮中分发
type Player struct {
	env       *Env
	playerId  string
	gate      actor.Key
	sessionId uint64
}

func newPlayer(env *Env, playerId string) *Player {
	return &Player{env: env, playerId: playerId}
}

func (p *Player) online() bool {
	return p.sessionId != 0
}

func (p *Player) Receive(ctx *actor.Context) (interface{}, error) {
	switch ctx.Method {
	case MethodBindSession:
		return nil, p.bindSession(ctx, ctx.Payload.(*BindRequest))
	case MethodUnbindSession:
		sessionId := ctx.Payload.(uint64)
		if sessionId != p.sessionId {
			return nil, nil
		}
		p.unlink(ctx)
		return nil, nil
	case MethodForward:
		return p.forward(ctx, ctx.Payload.(*ForwardRequest))
	case MethodKickPlayer:
		if !p.online() {
			return nil, errorhandler.ErrNoLogin
		}
		gateKey := p.gate
		p.unlink(ctx)
		return nil, p.env.System.Send(ctx, gateKey, MethodKick, nil)
	default:
		return nil, fmt.Errorf("player: unknown method %d", ctx.Method)
	}
}

func (p *Player) bindSession(ctx *actor.Context, req *BindRequest) perror.LErrorDesc {
	if p.online() && p.sessionId == req.SessionId {
		return nil
	}
	// 旧的gateway已经不存在时视为离线
	if p.online() && p.env.System.Active(p.gate) {
		switch p.env.Policy {
		case LoginPolicyTakeover:
			if err := p.env.System.Send(ctx, p.gate, MethodKick, nil); err != nil {
				p.env.Logger.Debug("player %s kick session %d failed: %v", p.playerId, p.sessionId, err)
			}
			p.env.Logger.Info("player %s session %d taken over by session %d", p.playerId, p.sessionId, req.SessionId)
		default:
			return p.env.EHandle.LWarpErrorDesc(errorhandler.ErrRepeatLogin,
				fmt.Sprintf("player %s already online on session %d", p.playerId, p.sessionId))
		}
	}
	p.gate = req.Gate
	p.sessionId = req.SessionId
	p.notify(ctx, true)
	return nil
}

func (p *Player) unlink(ctx *actor.Context) {
	p.gate = actor.Key{}
	p.sessionId = 0
	p.notify(ctx, false)
}

func (p *Player) notify(ctx *actor.Context, online bool) {
	err := p.env.System.Send(ctx, SessionKey(p.playerId), MethodLinkChanged, Link{
		Gate:      p.gate,
		SessionId: p.sessionId,
		Online:    online,
	})
	if err != nil {
		p.env.Logger.Warn("player %s notify session actor failed: %v", p.playerId, err)
	}
}

func (p *Player) forward(ctx *actor.Context, req *ForwardRequest) (interface{}, error) {
	// 连接已经被接管
	if req.SessionId != p.sessionId {
		return nil, p.env.EHandle.LWarpErrorDesc(errorhandler.ErrNoLogin,
			fmt.Sprintf("session %d is no longer bound to player %s", req.SessionId, p.playerId))
	}
	rCtx := &registry.Context{
		Context:   ctx,
		SessionId: req.SessionId,
		PlayerId:  p.playerId,
		Logger:    p.env.Logger,
		Binder: func(playerId string) perror.LErrorDesc {
			if playerId == p.playerId {
				return nil
			}
			return p.env.EHandle.LWarpErrorDesc(errorhandler.ErrRepeatLogin,
				fmt.Sprintf("session %d already bound to player %s", req.SessionId, p.playerId))
		},
		Pusher: func(playerId string, msg interface{}) perror.LErrorDesc {
			return p.env.Push(ctx, playerId, msg)
		},
	}
	return p.env.Dispatcher.Dispatch(rCtx, req.Header, req.Body), nil
}
