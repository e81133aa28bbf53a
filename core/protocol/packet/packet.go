package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	perror "github.com/nyan233/littlegate/core/protocol/error"
)

const (
	// HeaderSize 头部的固定长度, 字段按声明顺序排列, 无填充
	HeaderSize = 2 + 4 + 4 + 4
	// MagicNumber 客户端发出的请求在Status字段中携带的魔数
	MagicNumber int32 = 0x5441474C // "LGAT"
	// PushRpcId RpcId为0的消息是推送形式的, 不需要也不会有响应
	PushRpcId int32 = 0
)

const (
	_ProtocolIdOffset = 0
	_BodyLengthOffset = 2
	_RpcIdOffset      = 6
	_StatusOffset     = 10
)

var (
	ErrMalformedHeader    = errorhandler.ErrMalformedHeader
	ErrBodyLengthMismatch = errorhandler.ErrBodyLengthMismatch
)

// Header 在请求方向上Status为MagicNumber, 在响应/推送方向上为错误码
type Header struct {
	ProtocolId uint16
	BodyLength int32
	RpcId      int32
	Status     int32
}

func (h Header) IsPush() bool {
	return h.RpcId == PushRpcId
}

func (h Header) String() string {
	return fmt.Sprintf("{ProtocolId:%d BodyLength:%d RpcId:%d Status:%d}",
		h.ProtocolId, h.BodyLength, h.RpcId, h.Status)
}

// PutHeader 将h写入b的前HeaderSize个字节, b的长度不足时panic
func PutHeader(b []byte, h Header) {
	_ = b[HeaderSize-1]
	binary.LittleEndian.PutUint16(b[_ProtocolIdOffset:], h.ProtocolId)
	binary.LittleEndian.PutUint32(b[_BodyLengthOffset:], uint32(h.BodyLength))
	binary.LittleEndian.PutUint32(b[_RpcIdOffset:], uint32(h.RpcId))
	binary.LittleEndian.PutUint32(b[_StatusOffset:], uint32(h.Status))
}

// DecodeHeader 只解码头部, 不校验BodyLength与剩余数据是否一致
func DecodeHeader(b []byte) (Header, perror.LErrorDesc) {
	if len(b) < HeaderSize {
		return Header{}, errorhandler.DefaultErrHandler.LWarpErrorDesc(ErrMalformedHeader,
			fmt.Sprintf("need %d bytes but got %d", HeaderSize, len(b)))
	}
	return Header{
		ProtocolId: binary.LittleEndian.Uint16(b[_ProtocolIdOffset:]),
		BodyLength: int32(binary.LittleEndian.Uint32(b[_BodyLengthOffset:])),
		RpcId:      int32(binary.LittleEndian.Uint32(b[_RpcIdOffset:])),
		Status:     int32(binary.LittleEndian.Uint32(b[_StatusOffset:])),
	}, nil
}

// Encode 按照h编码出完整的数据包, BodyLength总是由len(body)重新计算
func Encode(h Header, body []byte) []byte {
	return AppendEncode(make([]byte, 0, HeaderSize+len(body)), h, body)
}

// AppendEncode 与Encode相同, 但是追加到dst之后
func AppendEncode(dst []byte, h Header, body []byte) []byte {
	h.BodyLength = int32(len(body))
	start := len(dst)
	if cap(dst)-start < HeaderSize+len(body) {
		grow := make([]byte, start, start+HeaderSize+len(body))
		copy(grow, dst)
		dst = grow
	}
	dst = dst[:start+HeaderSize]
	PutHeader(dst[start:], h)
	return append(dst, body...)
}

// Decode 解码一个完整的数据包, 返回的body与b共享内存
func Decode(b []byte) (Header, []byte, perror.LErrorDesc) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	if int(h.BodyLength) != len(b)-HeaderSize || h.BodyLength < 0 {
		return Header{}, nil, errorhandler.DefaultErrHandler.LWarpErrorDesc(ErrBodyLengthMismatch,
			fmt.Sprintf("declared %d but got %d", h.BodyLength, len(b)-HeaderSize))
	}
	return h, b[HeaderSize:], nil
}

// Packet 是一个已经从传输层的缓冲区中拷贝出来的完整数据包
type Packet struct {
	Header
	Body []byte
}

// Reset 保留Body的容量以便复用
func (p *Packet) Reset() {
	p.Header = Header{}
	p.Body = p.Body[:0]
}

// Bytes 将Packet重新编码为线路格式
func (p *Packet) Bytes() []byte {
	return Encode(p.Header, p.Body)
}
