package error

// LErrorDesc 是跨越每一个边界(客户端<->传输层, Actor<->Actor, 分发器<->处理器)时唯一允许的错误形式
// Code() == Success 的描述不应该被返回, 无错误时返回nil
type LErrorDesc interface {
	Code() int
	Message() string
	AppendMore(more interface{})
	Mores() []interface{}
	MarshalMores() ([]byte, error)
	UnmarshalMores([]byte) error
	error
}

type LErrors interface {
	// LNewErrorDesc 用于生产标准错误
	LNewErrorDesc(code int, message string, mores ...interface{}) LErrorDesc
	// LWarpErrorDesc 用于包装标准错误
	LWarpErrorDesc(desc LErrorDesc, mores ...interface{}) LErrorDesc
}

type LNewErrorDesc func(code int, message string, mores ...interface{}) LErrorDesc

type LWarpErrorDesc func(desc LErrorDesc, mores ...interface{}) LErrorDesc

// CodeOf 返回err携带的错误码, nil为Success, 无法识别的error被视为Internal
func CodeOf(err error) int {
	if err == nil {
		return Success
	}
	if desc, ok := err.(LErrorDesc); ok {
		return desc.Code()
	}
	return Internal
}
