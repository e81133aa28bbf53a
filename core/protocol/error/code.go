package error

import (
	"fmt"
	"sync"
)

// 错误码都是较小的非负整数, 0表示成功, [0, ReservedMax)为内部保留的区间
// 协作方可以通过RegisterCode添加自己的领域错误码, 但不能与保留区间冲突

type Code int

const (
	Success            = 0
	InvalidParam       = 1  // 参数非法, 比如超出上限的BodyLength
	RequestCanceled    = 2  // 请求在得到响应之前被取消
	Internal           = 3  // 处理器内部错误
	Exception          = 4  // 构建/发送请求时出现了未捕获的错误
	NoHandler          = 5  // ProtocolId没有注册对应的处理器
	NoLogin            = 6  // 需要登录的协议在登录之前被请求
	RepeatLogin        = 7  // 同一个玩家在其它连接上已经登录
	MalformedHeader    = 8  // 头部长度不足或者魔数错误
	BodyLengthMismatch = 9  // 头部声明的长度与实际的长度不一致
	Timeout            = 10 // Actor调用或者请求超时
	ActorUnreachable   = 11 // Actor不可达: 类型未注册/已停止/邮箱已满
	ConnectionClosed   = 12 // 连接在请求完成之前被关闭
	CodecError         = 13 // 序列化/反序列化失败

	ReservedMax = 1000
)

var (
	codeMu     sync.RWMutex
	mappingStr = map[Code]string{
		Success:            "Success",
		InvalidParam:       "InvalidParam",
		RequestCanceled:    "RequestCanceled",
		Internal:           "Internal",
		Exception:          "Exception",
		NoHandler:          "NoHandler",
		NoLogin:            "NoLogin",
		RepeatLogin:        "RepeatLogin",
		MalformedHeader:    "MalformedHeader",
		BodyLengthMismatch: "BodyLengthMismatch",
		Timeout:            "Timeout",
		ActorUnreachable:   "ActorUnreachable",
		ConnectionClosed:   "ConnectionClosed",
		CodecError:         "CodecError",
	}
)

func (c Code) String() string {
	codeMu.RLock()
	defer codeMu.RUnlock()
	if name, ok := mappingStr[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// RegisterCode 注册一个领域错误码, 在保留区间内或者重复注册都会panic
// 应该在init或者启动阶段调用
func RegisterCode(code int, name string) {
	if code < ReservedMax {
		panic(fmt.Sprintf("error code %d is in the reserved range [0, %d)", code, ReservedMax))
	}
	if name == "" {
		panic("error code name is empty")
	}
	codeMu.Lock()
	defer codeMu.Unlock()
	if old, ok := mappingStr[Code(code)]; ok {
		panic(fmt.Sprintf("error code %d already registered as %s", code, old))
	}
	mappingStr[Code(code)] = name
}
