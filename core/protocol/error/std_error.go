package error

import (
	"encoding/json"
)

// LStdError 网关与客户端之间只传输Code, Message与Mores只在本地可见

type LStdError struct {
	LCode    Code          `json:"code"`
	LMessage string        `json:"message"`
	LMores   []interface{} `json:"mores"`
}

func LNewStdError(code int, message string, mores ...interface{}) LErrorDesc {
	return &LStdError{
		LCode:    Code(code),
		LMessage: message,
		LMores:   mores,
	}
}

func LWarpStdError(desc LErrorDesc, mores ...interface{}) LErrorDesc {
	return &LStdError{
		LCode:    Code(desc.Code()),
		LMessage: desc.Message(),
		LMores:   append(append([]interface{}(nil), desc.Mores()...), mores...),
	}
}

func (L *LStdError) Code() int {
	return int(L.LCode)
}

func (L *LStdError) Message() string {
	return L.LMessage
}

func (L *LStdError) AppendMore(more interface{}) {
	L.LMores = append(L.LMores, more)
}

func (L *LStdError) Mores() []interface{} {
	return L.LMores
}

// Is 只比较错误码, 使errors.Is可以匹配被包装过的预定义错误
func (L *LStdError) Is(target error) bool {
	desc, ok := target.(LErrorDesc)
	return ok && desc.Code() == int(L.LCode)
}

func (L *LStdError) Error() string {
	type printError struct {
		Code    int           `json:"code"`
		Name    string        `json:"name"`
		Message string        `json:"message"`
		Mores   []interface{} `json:"mores,omitempty"`
	}
	bytes, err := json.Marshal(&printError{
		Code:    int(L.LCode),
		Name:    L.LCode.String(),
		Message: L.LMessage,
		Mores:   L.LMores,
	})
	if err != nil {
		panic("json.Marshal failed : " + err.Error())
	}
	return string(bytes)
}

func (L *LStdError) MarshalMores() ([]byte, error) {
	return json.Marshal(L.LMores)
}

func (L *LStdError) UnmarshalMores(bytes []byte) error {
	return json.Unmarshal(bytes, &L.LMores)
}
