// Package gameproto 是gated与gatecli共用的演示协议表
package gameproto

const (
	IdLoginReq   uint16 = 1001
	IdLoginRsp   uint16 = 1002
	IdPingReq    uint16 = 1003
	IdPingRsp    uint16 = 1004
	IdProfileReq uint16 = 1005
	IdProfileRsp uint16 = 1006
	IdSayReq     uint16 = 1007
	IdNotice     uint16 = 1100
)

type LoginReq struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

func (l *LoginReq) Reset() {
	*l = LoginReq{}
}

type LoginRsp struct {
	PlayerId string `json:"player_id"`
	Nickname string `json:"nickname"`
}

type PingReq struct {
	Seq int64 `json:"seq"`
}

type PingRsp struct {
	Seq        int64 `json:"seq"`
	ServerTime int64 `json:"server_time"`
}

type ProfileReq struct{}

type ProfileRsp struct {
	PlayerId  string `json:"player_id"`
	Account   string `json:"account"`
	Nickname  string `json:"nickname"`
	SessionId uint64 `json:"session_id"`
}

// SayReq To为空时推送给自己
type SayReq struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *SayReq) Reset() {
	*s = SayReq{}
}

type Notice struct {
	From string `json:"from"`
	Text string `json:"text"`
}
