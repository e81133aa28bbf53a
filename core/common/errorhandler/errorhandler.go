package errorhandler

import (
	"encoding/json"
	"fmt"
	"runtime"

	error2 "github.com/nyan233/littlegate/core/protocol/error"
)

// DefaultErrHandler 不带栈追踪的默认错误处理器
var DefaultErrHandler = New()

type marshalStack struct {
	Stack stack `json:"stack"`
}

// stack 记录的顺序是由内到外, 序列化时反转为由外到内
type stack []string

func (s stack) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	reversed := make([]string, len(s))
	for i := range s {
		reversed[len(s)-1-i] = s[i]
	}
	return json.Marshal(reversed)
}

// stackTraceError 在标准错误的基础上附带产生/包装错误的位置, 只在服务端的日志中有意义
type stackTraceError struct {
	*error2.LStdError
	Stack stack
}

func (l *stackTraceError) withCaller(file string, line int, ok bool) *stackTraceError {
	if !ok {
		l.Stack = append(l.Stack, "???.go:???")
	} else {
		l.Stack = append(l.Stack, fmt.Sprintf("%s:%d", file, line))
	}
	return l
}

func (l *stackTraceError) moresWithStack() []interface{} {
	return append(append([]interface{}(nil), l.Mores()...), &marshalStack{Stack: l.Stack})
}

func (l *stackTraceError) MarshalMores() ([]byte, error) {
	return json.Marshal(l.moresWithStack())
}

func (l *stackTraceError) Error() string {
	bytes, err := json.Marshal(&struct {
		Code    int           `json:"code"`
		Name    string        `json:"name"`
		Message string        `json:"message"`
		Mores   []interface{} `json:"mores"`
	}{
		Code:    l.Code(),
		Name:    l.LCode.String(),
		Message: l.Message(),
		Mores:   l.moresWithStack(),
	})
	if err != nil {
		panic("json.Marshal failed : " + err.Error())
	}
	return string(bytes)
}

type JsonErrorHandler struct {
	openStackTrace bool
}

func NewStackTrace() error2.LErrors {
	return &JsonErrorHandler{
		openStackTrace: true,
	}
}

func New() error2.LErrors {
	return new(JsonErrorHandler)
}

func (j JsonErrorHandler) LNewErrorDesc(code int, message string, mores ...interface{}) error2.LErrorDesc {
	std := error2.LNewStdError(code, message, mores...).(*error2.LStdError)
	if !j.openStackTrace {
		return std
	}
	// runtime.Caller不能抽到公共函数中, 否则skip会指向错误的位置
	_, file, line, ok := runtime.Caller(1)
	return (&stackTraceError{LStdError: std}).withCaller(file, line, ok)
}

func (j JsonErrorHandler) LWarpErrorDesc(desc error2.LErrorDesc, mores ...interface{}) error2.LErrorDesc {
	std := error2.LWarpStdError(desc, mores...).(*error2.LStdError)
	if !j.openStackTrace {
		return std
	}
	err := &stackTraceError{LStdError: std}
	if old, ok := desc.(*stackTraceError); ok {
		err.Stack = append(stack(nil), old.Stack...)
	}
	_, file, line, ok := runtime.Caller(1)
	return err.withCaller(file, line, ok)
}
