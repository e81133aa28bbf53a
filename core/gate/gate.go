package gate

import (
	"context"
	"strconv"

	"github.com/nyan233/littlegate/core/actor"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/dispatch"
	"github.com/nyan233/littlegate/core/middle/plugin"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

const (
	KindGate    = "gate"
	KindPlayer  = "player"
	KindSession = "session"
)

// gateway
const (
	MethodInbound = iota + 1
	MethodOutbound
	MethodKick
	MethodDisconnect
)

// player
const (
	MethodBindSession = iota + 100
	MethodUnbindSession
	MethodForward
	MethodKickPlayer
)

// session
const (
	MethodLinkChanged = iota + 200
	MethodPush
)

// LoginPolicy 决定同一个玩家在另一个连接上登录时的行为
type LoginPolicy int

const (
	// LoginPolicyReject 新的登录得到RepeatLogin
	LoginPolicyReject LoginPolicy = iota
	// LoginPolicyTakeover 踢掉旧的连接, 新的连接接管玩家
	LoginPolicyTakeover
)

func (p LoginPolicy) String() string {
	switch p {
	case LoginPolicyTakeover:
		return "takeover"
	default:
		return "reject"
	}
}

// ParseLoginPolicy 无法识别的值返回false
func ParseLoginPolicy(s string) (LoginPolicy, bool) {
	switch s {
	case "", "reject":
		return LoginPolicyReject, true
	case "takeover":
		return LoginPolicyTakeover, true
	default:
		return LoginPolicyReject, false
	}
}

// BindRequest gateway -> player
type BindRequest struct {
	Gate      actor.Key
	SessionId uint64
}

// ForwardRequest gateway -> player, 已经登录的连接上的请求
type ForwardRequest struct {
	SessionId uint64
	Header    packet.Header
	Body      []byte
}

// Link player -> session, 玩家与连接之间的绑定关系发生变化
type Link struct {
	Gate      actor.Key
	SessionId uint64
	Online    bool
}

func GateKey(sessionId uint64) actor.Key {
	return actor.Key{Kind: KindGate, Id: strconv.FormatUint(sessionId, 10)}
}

func PlayerKey(playerId string) actor.Key {
	return actor.Key{Kind: KindPlayer, Id: playerId}
}

func SessionKey(playerId string) actor.Key {
	return actor.Key{Kind: KindSession, Id: playerId}
}

// Env 三种Actor共享的依赖, 创建之后只读
type Env struct {
	System     *actor.System
	Dispatcher *dispatch.Dispatcher
	Logger     logger.LLogger
	EHandle    perror.LErrors
	Policy     LoginPolicy
	Plugins    *plugin.Manager
	// FreePacket 归还入站的数据包, 为nil时交给GC
	FreePacket func(pkt *packet.Packet)
}

// Register 注册player与session两种虚拟Actor以及只能显式创建的gate
func (env *Env) Register() {
	if env.Logger == nil {
		env.Logger = logger.DefaultLogger
	}
	if env.EHandle == nil {
		env.EHandle = errorhandler.DefaultErrHandler
	}
	if env.Plugins == nil {
		env.Plugins = plugin.NewManager(nil)
	}
	env.System.Register(KindGate, func(key actor.Key) (actor.Receiver, error) {
		return nil, errorhandler.ErrActorUnreachable
	}, actor.SpawnOnly())
	env.System.Register(KindPlayer, func(key actor.Key) (actor.Receiver, error) {
		return newPlayer(env, key.Id), nil
	})
	env.System.Register(KindSession, func(key actor.Key) (actor.Receiver, error) {
		return newSession(env, key.Id), nil
	})
}

// Push 经过session actor把消息推送给玩家当前的连接, 玩家离线时消息被丢弃
func (env *Env) Push(ctx context.Context, playerId string, msg interface{}) perror.LErrorDesc {
	return env.System.Send(ctx, SessionKey(playerId), MethodPush, msg)
}

// Kick 断开玩家当前的连接, 玩家不在线时返回NoLogin
func (env *Env) Kick(ctx context.Context, playerId string) perror.LErrorDesc {
	_, err := env.System.Call(ctx, PlayerKey(playerId), MethodKickPlayer, nil)
	return err
}

func (env *Env) freePacket(pkt *packet.Packet) {
	if env.FreePacket != nil {
		env.FreePacket(pkt)
	}
}
