package client

import (
	"errors"
	"io"
	"net"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/transport"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

func (c *Client) onOpen(conn transport.ConnAdapter) {
	c.logger.Debug("open connection %s -> %s", conn.LocalAddr(), conn.RemoteAddr())
}

func (c *Client) onMessage(conn transport.ConnAdapter, data []byte) {
	pkts, err := c.parser.Parse(data)
	if err != nil {
		c.logger.Error("parse message failed: %v", err)
		if err := conn.Close(); err != nil {
			c.logger.Error("close conn failed: %v", err)
		}
		return
	}
	for _, pkt := range pkts {
		if c.cfg.Debug {
			c.logger.Debug("recv %s", pkt.Header)
		}
		if pkt.IsPush() {
			c.onPush(pkt)
			continue
		}
		if !c.resolve(pkt) {
			// 请求已经被取消或者超时
			c.logger.Debug("rpc id %d late response discarded, protocol %d status %d", pkt.RpcId, pkt.ProtocolId, pkt.Status)
			c.parser.Free(pkt)
		}
	}
}

func (c *Client) onPush(pkt *packet.Packet) {
	defer c.parser.Free(pkt)
	fn, ok := c.subscribers.LoadOk(pkt.ProtocolId)
	if !ok {
		c.logger.Debug("push protocol %d has no subscriber", pkt.ProtocolId)
		return
	}
	msg := c.reg.Acquire(pkt.ProtocolId)
	if msg == nil {
		c.logger.Warn("push protocol %d not registered", pkt.ProtocolId)
		return
	}
	if err := c.codec.Unmarshal(pkt.Body, msg); err != nil {
		c.reg.Release(msg)
		c.logger.Warn("push protocol %d decode failed: %v", pkt.ProtocolId, err)
		return
	}
	if err := c.pushPool.Push(uint64(pkt.ProtocolId), func() {
		defer c.reg.Release(msg)
		fn(msg)
	}); err != nil {
		c.reg.Release(msg)
		c.logger.Debug("push protocol %d dropped: %v", pkt.ProtocolId, err)
	}
}

func (c *Client) onClose(conn transport.ConnAdapter, err error) {
	c.resolveAll(c.eHandle.LWarpErrorDesc(errorhandler.ErrConnectionClosed, "client receive onClose"))
	c.parser.Release()
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		c.logger.Error("OnClose err : %v", err)
	}
}
