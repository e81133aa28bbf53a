package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtoBufCodec 只能处理实现了proto.Message的类型
type ProtoBufCodec struct{}

func (p ProtoBufCodec) Scheme() string {
	return "protobuf"
}

func (p ProtoBufCodec) Marshal(i interface{}) ([]byte, error) {
	msg, ok := i.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("protobuf codec: %T is not a proto.Message", i)
	}
	return proto.Marshal(msg)
}

func (p ProtoBufCodec) Unmarshal(data []byte, i interface{}) error {
	msg, ok := i.(proto.Message)
	if !ok {
		return fmt.Errorf("protobuf codec: %T is not a proto.Message", i)
	}
	return proto.Unmarshal(data, msg)
}
