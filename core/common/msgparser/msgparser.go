package msgparser

import (
	"fmt"
	"sync"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
)

const (
	_AwaitingHeader int = iota // 等待读满一个完整的头部
	_AwaitingBody              // 头部已经解析, 等待读满BodyLength个字节
)

const (
	DefaultBufferSize    = 4096    // 4KB
	DefaultMaxBodyLength = 1 << 20 // 1MB
)

type Option func(p *Parser)

// WithMaxBodyLength 超过n的BodyLength被视为非法参数, 连接应该被关闭
func WithMaxBodyLength(n int32) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// WithMagicCheck 请求方向(服务端)需要校验Status中的魔数, 响应方向(客户端)中Status为错误码
func WithMagicCheck(ok bool) Option {
	return func(p *Parser) {
		p.checkMagic = ok
	}
}

// Parser 是一个半包解析器, 每个连接独占一个
// 所有方法都是goroutine safe的
type Parser struct {
	mu       sync.Mutex
	allocTor Allocator
	// 当前在状态机中处于的状态
	state int
	// 距离转移到下一个状态需要读取的数据量
	clickInterval int
	header        packet.Header
	// 存储半包数据的缓冲区, 只会增长, 在Release之前一直复用
	halfBuffer []byte
	maxBody    int32
	checkMagic bool
}

func New(allocTor Allocator, bufSize uint32, opts ...Option) *Parser {
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if allocTor == nil {
		allocTor = NewDefaultAllocator(nil)
	}
	p := &Parser{
		allocTor:      allocTor,
		state:         _AwaitingHeader,
		clickInterval: packet.HeaderSize,
		halfBuffer:    make([]byte, 0, bufSize),
		maxBody:       DefaultMaxBodyLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse 必须能够正确处理半包, 也必须能处理包含多个完整数据包的数据
// 返回的Packet不与data共享内存, 使用完毕后通过Free归还
// 返回错误时已经解析出的Packet会被回收, Parser的状态被重置, 调用者应该关闭连接
func (p *Parser) Parse(data []byte) (pkts []*packet.Packet, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parse(data)
}

func (p *Parser) parse(data []byte) (pkts []*packet.Packet, err error) {
	defer func() {
		if err == nil {
			return
		}
		for _, pkt := range pkts {
			p.allocTor.FreePacket(pkt)
		}
		pkts = nil
		p.resetScan()
	}()
	for len(data) > 0 {
		var chunk []byte
		need := p.clickInterval - len(p.halfBuffer)
		switch {
		case len(p.halfBuffer) == 0 && len(data) >= need:
			// 数据足够时直接在data上解析, 避免一次拷贝到halfBuffer
			chunk = data[:need]
			data = data[need:]
		case len(data) < need:
			p.halfBuffer = append(p.halfBuffer, data...)
			return pkts, nil
		default:
			p.halfBuffer = append(p.halfBuffer, data[:need]...)
			data = data[need:]
			chunk = p.halfBuffer
		}
		switch p.state {
		case _AwaitingHeader:
			if err = p.handleHeader(chunk); err != nil {
				return
			}
			if p.header.BodyLength == 0 {
				pkts = append(pkts, p.complete(nil))
			}
		case _AwaitingBody:
			pkts = append(pkts, p.complete(chunk))
		}
	}
	return pkts, nil
}

func (p *Parser) handleHeader(chunk []byte) perror.LErrorDesc {
	h, err := packet.DecodeHeader(chunk)
	if err != nil {
		return err
	}
	if h.BodyLength < 0 || h.BodyLength > p.maxBody {
		return errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrInvalidParam,
			fmt.Sprintf("body length %d out of range [0, %d]", h.BodyLength, p.maxBody))
	}
	if p.checkMagic && h.Status != packet.MagicNumber {
		return errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrMalformedHeader,
			fmt.Sprintf("bad magic number 0x%x", uint32(h.Status)))
	}
	p.header = h
	p.halfBuffer = p.halfBuffer[:0]
	p.state = _AwaitingBody
	p.clickInterval = int(h.BodyLength)
	return nil
}

func (p *Parser) complete(body []byte) *packet.Packet {
	pkt := p.allocTor.AllocPacket()
	pkt.Header = p.header
	pkt.Body = append(pkt.Body[:0], body...)
	p.resetScan()
	return pkt
}

func (p *Parser) resetScan() {
	p.state = _AwaitingHeader
	p.clickInterval = packet.HeaderSize
	p.header = packet.Header{}
	p.halfBuffer = p.halfBuffer[:0]
}

// Free 用于释放Parse返回的数据, Parse返回error时返回的数据已经被释放
func (p *Parser) Free(pkt *packet.Packet) {
	p.allocTor.FreePacket(pkt)
}

func (p *Parser) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetScan()
}

// Release 在连接关闭时调用, 丢弃缓冲区
func (p *Parser) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetScan()
	p.halfBuffer = nil
}

// State 下个状态的触发间隔&当前的状态&缓冲区的长度
func (p *Parser) State() (int, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clickInterval, p.state, len(p.halfBuffer)
}
