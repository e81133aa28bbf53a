package errorhandler

import (
	error2 "github.com/nyan233/littlegate/core/protocol/error"
)

var (
	ErrInvalidParam       = DefaultErrHandler.LNewErrorDesc(error2.InvalidParam, "invalid parameter")
	ErrRequestCanceled    = DefaultErrHandler.LNewErrorDesc(error2.RequestCanceled, "request canceled")
	ErrInternal           = DefaultErrHandler.LNewErrorDesc(error2.Internal, "internal error")
	ErrException          = DefaultErrHandler.LNewErrorDesc(error2.Exception, "unhandled exception")
	ErrNoHandler          = DefaultErrHandler.LNewErrorDesc(error2.NoHandler, "no handler registered")
	ErrNoLogin            = DefaultErrHandler.LNewErrorDesc(error2.NoLogin, "not logged in")
	ErrRepeatLogin        = DefaultErrHandler.LNewErrorDesc(error2.RepeatLogin, "repeat login")
	ErrMalformedHeader    = DefaultErrHandler.LNewErrorDesc(error2.MalformedHeader, "malformed header")
	ErrBodyLengthMismatch = DefaultErrHandler.LNewErrorDesc(error2.BodyLengthMismatch, "body length mismatch")
	ErrTimeout            = DefaultErrHandler.LNewErrorDesc(error2.Timeout, "timeout")
	ErrActorUnreachable   = DefaultErrHandler.LNewErrorDesc(error2.ActorUnreachable, "actor unreachable")
	ErrConnectionClosed   = DefaultErrHandler.LNewErrorDesc(error2.ConnectionClosed, "connection closed")
	ErrCodec              = DefaultErrHandler.LNewErrorDesc(error2.CodecError, "codec error")
)

// FromCode 将线路上只携带了错误码的响应还原成错误描述, Success返回nil
func FromCode(eh error2.LErrors, code int) error2.LErrorDesc {
	if code == error2.Success {
		return nil
	}
	if eh == nil {
		eh = DefaultErrHandler
	}
	return eh.LNewErrorDesc(code, error2.Code(code).String())
}
