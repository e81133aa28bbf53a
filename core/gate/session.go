package gate

import (
	"fmt"

	"github.com/nyan233/littlegate/core/actor"
)

// Session 玩家的推送出口, 知道玩家当前连接在哪一个gateway上
type Session struct {
	env       *Env
	playerId  string
	link      Link
	dropCount int64
}

func newSession(env *Env, playerId string) *Session {
	return &Session{env: env, playerId: playerId}
}

func (s *Session) Receive(ctx *actor.Context) (interface{}, error) {
	switch ctx.Method {
	case MethodLinkChanged:
		s.link = ctx.Payload.(Link)
		return nil, nil
	case MethodPush:
		if !s.link.Online {
			s.dropCount++
			s.env.Logger.Debug("player %s offline, push %T dropped (total %d)", s.playerId, ctx.Payload, s.dropCount)
			return nil, nil
		}
		pkt, err := s.env.Dispatcher.Encode(ctx.Payload)
		if err != nil {
			return nil, err
		}
		if err := s.env.System.Send(ctx, s.link.Gate, MethodOutbound, pkt); err != nil {
			s.env.Logger.Debug("player %s push to session %d failed: %v", s.playerId, s.link.SessionId, err)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("session: unknown method %d", ctx.Method)
	}
}
