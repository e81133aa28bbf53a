package msgparser

import (
	"sync"

	"github.com/nyan233/littlegate/core/protocol/packet"
)

// Allocator 为Parser分配可复用的Packet, 实现必须是goroutine safe的
type Allocator interface {
	AllocPacket() *packet.Packet
	FreePacket(p *packet.Packet)
}

type simpleAllocator struct {
	packetPool *sync.Pool
}

// NewDefaultAllocator sharedPool可以被多个连接的Parser共享, 为nil时创建独立的池
func NewDefaultAllocator(sharedPool *sync.Pool) Allocator {
	if sharedPool == nil {
		sharedPool = NewPacketPool()
	}
	return &simpleAllocator{packetPool: sharedPool}
}

func NewPacketPool() *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			return new(packet.Packet)
		},
	}
}

func (s *simpleAllocator) AllocPacket() *packet.Packet {
	p := s.packetPool.Get().(*packet.Packet)
	p.Reset()
	return p
}

func (s *simpleAllocator) FreePacket(p *packet.Packet) {
	if p == nil {
		return
	}
	s.packetPool.Put(p)
}
