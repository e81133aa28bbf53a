package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"time"

	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	"github.com/nyan233/littlegate/core/middle/codec"
	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/nyan233/littlegate/core/registry"
)

// Observer 在每一次分发完成之后调用, code为写入响应的错误码
type Observer func(h packet.Header, code int, cost time.Duration)

type Option func(d *Dispatcher)

func WithCodec(c codec.Codec) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.codec = c
		}
	}
}

func WithErrHandler(eh perror.LErrors) Option {
	return func(d *Dispatcher) {
		if eh != nil {
			d.eHandle = eh
		}
	}
}

func WithLogger(l logger.LLogger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// Dispatcher 将一个完整的请求包交给注册的处理器, 并将结果编码为响应包
// 注册表是只读的, 所以Dispatcher可以被任意数量的Actor并发使用
type Dispatcher struct {
	reg      *registry.Registry
	codec    codec.Codec
	eHandle  perror.LErrors
	logger   logger.LLogger
	observer Observer
}

func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:     reg,
		codec:   codec.Get(codec.DefaultCodec),
		eHandle: errorhandler.DefaultErrHandler,
		logger:  logger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Registry() *registry.Registry {
	return d.reg
}

func (d *Dispatcher) Codec() codec.Codec {
	return d.codec
}

// Authorize 检查一个协议能否在ctx的登录状态下被请求
func (d *Dispatcher) Authorize(ctx *registry.Context, protocolId uint16) perror.LErrorDesc {
	entry := d.reg.Lookup(protocolId)
	if entry == nil || entry.Handler == nil {
		return d.eHandle.LWarpErrorDesc(errorhandler.ErrNoHandler, fmt.Sprintf("protocol id %d", protocolId))
	}
	if !entry.Anonymous && !ctx.Authenticated() {
		return d.eHandle.LWarpErrorDesc(errorhandler.ErrNoLogin, fmt.Sprintf("protocol id %d", protocolId))
	}
	return nil
}

// Dispatch 推送形式(RpcId == 0)的输入依然会被处理, 但是返回nil
// 请求对象在响应编码完成之后才会被回收
func (d *Dispatcher) Dispatch(ctx *registry.Context, h packet.Header, body []byte) *packet.Packet {
	start := time.Now()
	req, rsp, err := d.invoke(ctx, h, body)
	pkt := d.Response(h, rsp, err)
	if req != nil {
		d.reg.Release(req)
	}
	if d.observer != nil {
		d.observer(h, int(pkt.Status), time.Since(start))
	}
	if h.IsPush() {
		if pkt.Status != perror.Success {
			d.logger.Warn("push-shaped packet protocol=%d session=%d failed: %v", h.ProtocolId, ctx.SessionId, err)
		}
		return nil
	}
	return pkt
}

// invoke 解码请求并调用处理器, 返回的req由调用者在使用完rsp之后回收
func (d *Dispatcher) invoke(ctx *registry.Context, h packet.Header, body []byte) (req, rsp interface{}, err perror.LErrorDesc) {
	entry := d.reg.Lookup(h.ProtocolId)
	if entry == nil || entry.Handler == nil {
		return nil, nil, d.eHandle.LWarpErrorDesc(errorhandler.ErrNoHandler, fmt.Sprintf("protocol id %d", h.ProtocolId))
	}
	req = d.reg.Acquire(h.ProtocolId)
	if uErr := d.codec.Unmarshal(body, req); uErr != nil {
		return req, nil, d.eHandle.LWarpErrorDesc(errorhandler.ErrInvalidParam, uErr.Error())
	}
	defer d.processCallRecover(ctx, h, &rsp, &err)
	result, hErr := entry.Handler.Handle(ctx, req)
	if hErr != nil {
		var desc perror.LErrorDesc
		if errors.As(hErr, &desc) {
			if desc.Code() == perror.Success {
				return req, result, nil
			}
			return req, nil, desc
		}
		return req, nil, d.eHandle.LWarpErrorDesc(errorhandler.ErrInternal, hErr.Error())
	}
	return req, result, nil
}

// Response 错误响应不携带Body, 没有载荷的成功响应使用请求的ProtocolId
func (d *Dispatcher) Response(h packet.Header, rsp interface{}, err perror.LErrorDesc) *packet.Packet {
	pkt := &packet.Packet{
		Header: packet.Header{
			ProtocolId: h.ProtocolId,
			RpcId:      h.RpcId,
			Status:     perror.Success,
		},
	}
	if err != nil {
		pkt.Status = int32(err.Code())
		return pkt
	}
	if isNil(rsp) {
		return pkt
	}
	id, ok := d.reg.IdOf(rsp)
	if !ok {
		d.logger.Error("protocol %d handler returned unregistered type %T", h.ProtocolId, rsp)
		pkt.Status = perror.Internal
		return pkt
	}
	body, mErr := d.codec.Marshal(rsp)
	if mErr != nil {
		d.logger.Error("protocol %d marshal %T failed: %v", h.ProtocolId, rsp, mErr)
		pkt.Status = perror.CodecError
		return pkt
	}
	pkt.ProtocolId = id
	pkt.Body = body
	pkt.BodyLength = int32(len(body))
	return pkt
}

// Encode 将一条推送消息编码为RpcId为0的数据包
func (d *Dispatcher) Encode(msg interface{}) (*packet.Packet, perror.LErrorDesc) {
	id, ok := d.reg.IdOf(msg)
	if !ok {
		return nil, d.eHandle.LWarpErrorDesc(errorhandler.ErrInvalidParam, fmt.Sprintf("unregistered type %T", msg))
	}
	body, err := d.codec.Marshal(msg)
	if err != nil {
		return nil, d.eHandle.LWarpErrorDesc(errorhandler.ErrCodec, err.Error())
	}
	return &packet.Packet{
		Header: packet.Header{
			ProtocolId: id,
			BodyLength: int32(len(body)),
			RpcId:      packet.PushRpcId,
			Status:     perror.Success,
		},
		Body: body,
	}, nil
}

func (d *Dispatcher) processCallRecover(ctx *registry.Context, h packet.Header, rsp *interface{}, err *perror.LErrorDesc) {
	e := recover()
	if e == nil {
		return
	}
	printStr := fmt.Sprintf("%v", e)
	*rsp = nil
	*err = d.eHandle.LWarpErrorDesc(errorhandler.ErrInternal, printStr)
	var stack [4096]byte
	size := runtime.Stack(stack[:], false)
	d.logger.Warn("handler panic protocol=%d session=%d : %s\n%s", h.ProtocolId, ctx.SessionId, printStr, string(stack[:size]))
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
