package server

import (
	"context"
	"time"

	"github.com/nyan233/littlegate/core/common/msgparser"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/gate"
	"github.com/nyan233/littlegate/core/middle/plugin"
)

func (s *Server) onOpen(conn transport.ConnAdapter) {
	if !s.pManager.Event4S(plugin.OnOpen) {
		s.logger.Info("connection %s rejected by plugin", conn.RemoteAddr())
		_ = conn.Close()
		return
	}
	// 初始化连接的相关数据
	desc := &connSourceDesc{
		Parser: msgparser.New(s.allocTor, msgparser.DefaultBufferSize,
			msgparser.WithMaxBodyLength(s.config.MaxBodyLength),
			msgparser.WithMagicCheck(true),
		),
		SessionId: s.sessionSeq.Add(1),
	}
	key, err := gate.SpawnGateway(s.env, desc.SessionId, conn)
	if err != nil {
		s.logger.Error("session %d spawn gateway failed: %v", desc.SessionId, err)
		s.pManager.Event4S(plugin.OnClose)
		_ = conn.Close()
		return
	}
	desc.Gate = key
	s.connsSourceDesc.Store(conn, desc)
	s.logger.Info("open connection %s:%s session %d", conn.LocalAddr(), conn.RemoteAddr(), desc.SessionId)
}

func (s *Server) onMessage(conn transport.ConnAdapter, data []byte) {
	desc, ok := s.connsSourceDesc.LoadOk(conn)
	if !ok {
		s.logger.Error("no register message-parser, remote ip = %s", conn.RemoteAddr())
		_ = conn.Close()
		return
	}
	if !s.pManager.Event4S(plugin.OnMessage) {
		_ = conn.Close()
		return
	}
	start := time.Now()
	pkts, err := desc.Parser.Parse(data)
	if err != nil {
		// 数据流已经无法同步, 只能关闭连接
		s.logger.Warn("session %d parse failed: %v", desc.SessionId, err)
		_ = conn.Close()
		return
	}
	for i, pkt := range pkts {
		if s.config.Debug {
			s.debugPacket(desc, pkt, start)
		}
		// 连接上的数据包按照到达的顺序进入gateway的邮箱
		if err := s.system.Send(context.Background(), desc.Gate, gate.MethodInbound, pkt); err != nil {
			s.logger.Warn("session %d inbound dropped: %v", desc.SessionId, err)
			for _, rest := range pkts[i:] {
				desc.Parser.Free(rest)
			}
			_ = conn.Close()
			return
		}
	}
}

func (s *Server) onClose(conn transport.ConnAdapter, err error) {
	// 被插件拒绝的连接没有经过OnOpen, 也不会触发OnClose
	desc, ok := s.connsSourceDesc.LoadAndDelete(conn)
	if !ok {
		return
	}
	s.pManager.Event4S(plugin.OnClose)
	if err != nil {
		s.logger.Info("close connection %s:%s session %d err: %v", conn.LocalAddr(), conn.RemoteAddr(), desc.SessionId, err)
	} else {
		s.logger.Info("close connection %s:%s session %d", conn.LocalAddr(), conn.RemoteAddr(), desc.SessionId)
	}
	if sErr := s.system.Send(context.Background(), desc.Gate, gate.MethodDisconnect, nil); sErr != nil {
		// 邮箱已满时直接停止, 玩家在下次登录时会发现gateway已经不存在
		s.logger.Debug("session %d disconnect: %v", desc.SessionId, sErr)
		s.system.Stop(desc.Gate)
	}
	desc.Parser.Release()
}
