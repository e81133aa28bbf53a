package client

import (
	"sync"
	"time"

	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

// Complete 一次请求的结果, Packet不为nil时由等待者负责归还
type Complete struct {
	Packet *packet.Packet
	Error  perror.LErrorDesc
}

// pendingCall 从插入pending表到被移出之间由Client独占
// 只有把它从pending表中移出的一方能向done写入结果, 写入发生在持有锁的时候
type pendingCall struct {
	rpcId    int32
	issuedAt time.Time
	done     chan Complete
}

var callPool = sync.Pool{
	New: func() interface{} {
		return &pendingCall{done: make(chan Complete, 1)}
	},
}

func acquireCall(rpcId int32) *pendingCall {
	call := callPool.Get().(*pendingCall)
	call.rpcId = rpcId
	call.issuedAt = time.Now()
	return call
}

// releaseCall 调用之前call必须已经不在pending表中
func releaseCall(call *pendingCall, free func(pkt *packet.Packet)) {
	select {
	case c := <-call.done:
		if c.Packet != nil {
			free(c.Packet)
		}
	default:
	}
	call.rpcId = 0
	call.issuedAt = time.Time{}
	callPool.Put(call)
}
