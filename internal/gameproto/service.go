package gameproto

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nyan233/littlegate/core/common/config"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/registry"
)

const BadCredentials = 1100

var (
	// Namespace 用于从账号名派生稳定的玩家Id
	Namespace = uuid.MustParse("5c1c6b0e-2f38-4b8e-9d55-8f3c0f2b7a41")

	ErrBadCredentials perror.LErrorDesc
)

func init() {
	perror.RegisterCode(BadCredentials, "BadCredentials")
	ErrBadCredentials = errorhandler.DefaultErrHandler.LNewErrorDesc(BadCredentials, "BadCredentials")
}

// PlayerIdOf 同一个账号总是得到同一个玩家Id
func PlayerIdOf(account string) string {
	return uuid.NewSHA1(Namespace, []byte(account)).String()
}

type accountTable struct {
	byName   map[string]config.Account
	byPlayer map[string]config.Account
}

// Service 演示协议的处理器, 账号表可以在运行时整体替换
type Service struct {
	accounts atomic.Pointer[accountTable]
	now      func() time.Time
}

func NewService(accounts []config.Account) *Service {
	s := &Service{now: time.Now}
	s.SetAccounts(accounts)
	return s
}

func (s *Service) SetAccounts(accounts []config.Account) {
	table := &accountTable{
		byName:   make(map[string]config.Account, len(accounts)),
		byPlayer: make(map[string]config.Account, len(accounts)),
	}
	for _, acc := range accounts {
		table.byName[acc.Name] = acc
		table.byPlayer[PlayerIdOf(acc.Name)] = acc
	}
	s.accounts.Store(table)
}

func (s *Service) Registry() *registry.Registry {
	return s.bind(registry.NewBuilder()).MustBuild()
}

// ClientRegistry 只包含消息类型, 供客户端编解码使用
func ClientRegistry() *registry.Registry {
	return messages(registry.NewBuilder()).MustBuild()
}

func messages(b *registry.Builder) *registry.Builder {
	return b.Message(IdLoginRsp, new(LoginRsp)).
		Message(IdPingRsp, new(PingRsp)).
		Message(IdProfileRsp, new(ProfileRsp)).
		Message(IdNotice, new(Notice)).
		Message(IdLoginReq, new(LoginReq)).
		Message(IdPingReq, new(PingReq)).
		Message(IdProfileReq, new(ProfileReq)).
		Message(IdSayReq, new(SayReq))
}

func (s *Service) bind(b *registry.Builder) *registry.Builder {
	return b.Handle(IdLoginReq, new(LoginReq), registry.HandlerFunc[*LoginReq, *LoginRsp](s.login), registry.Anonymous()).
		Handle(IdPingReq, new(PingReq), registry.HandlerFunc[*PingReq, *PingRsp](s.ping), registry.Anonymous()).
		Handle(IdProfileReq, new(ProfileReq), registry.HandlerFunc[*ProfileReq, *ProfileRsp](s.profile)).
		Handle(IdSayReq, new(SayReq), registry.HandlerFunc[*SayReq, *Notice](s.say)).
		Message(IdLoginRsp, new(LoginRsp)).
		Message(IdPingRsp, new(PingRsp)).
		Message(IdProfileRsp, new(ProfileRsp)).
		Message(IdNotice, new(Notice))
}

func (s *Service) login(ctx *registry.Context, req *LoginReq) (*LoginRsp, error) {
	acc, ok := s.accounts.Load().byName[req.Account]
	if !ok || acc.Password != req.Password {
		return nil, ErrBadCredentials
	}
	if err := ctx.Login(PlayerIdOf(acc.Name)); err != nil {
		return nil, err
	}
	ctx.Debug("account %s login as %s", acc.Name, ctx.PlayerId)
	return &LoginRsp{PlayerId: ctx.PlayerId, Nickname: acc.Nickname}, nil
}

func (s *Service) ping(ctx *registry.Context, req *PingReq) (*PingRsp, error) {
	return &PingRsp{Seq: req.Seq, ServerTime: s.now().UnixMilli()}, nil
}

func (s *Service) profile(ctx *registry.Context, req *ProfileReq) (*ProfileRsp, error) {
	rsp := &ProfileRsp{PlayerId: ctx.PlayerId, SessionId: ctx.SessionId}
	// 账号可能已经被热更新移除, 此时只返回Id
	if acc, ok := s.accounts.Load().byPlayer[ctx.PlayerId]; ok {
		rsp.Account = acc.Name
		rsp.Nickname = acc.Nickname
	}
	return rsp, nil
}

// say 没有响应体, 结果通过推送送达
func (s *Service) say(ctx *registry.Context, req *SayReq) (*Notice, error) {
	n := &Notice{From: ctx.PlayerId, Text: req.Text}
	if req.To == "" || req.To == ctx.PlayerId {
		return nil, ctx.Push(n)
	}
	if ctx.Pusher == nil {
		return nil, errorhandler.ErrInternal
	}
	return nil, ctx.Pusher(req.To, n)
}
