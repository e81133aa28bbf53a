package codec

import (
	"encoding/json"
	"sync"
)

const DefaultCodec = "json"

type Codec interface {
	Scheme() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

var (
	manager = &codecManager{
		codecCollection: map[string]Codec{},
	}
)

type codecManager struct {
	mu              sync.RWMutex
	codecCollection map[string]Codec
}

func (m *codecManager) registerCodec(c Codec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codecCollection[c.Scheme()] = c
}

func (m *codecManager) getCodecFromScheme(scheme string) Codec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.codecCollection[scheme]
}

// Register 该调用是线程安全的, 相同Scheme的Codec会被覆盖
func Register(c Codec) {
	if c == nil {
		panic("codec is nil")
	}
	if c.Scheme() == "" {
		panic("codec scheme is empty")
	}
	manager.registerCodec(c)
}

// Get 该调用是线程安全的, 没有找到时返回nil
func Get(scheme string) Codec {
	return manager.getCodecFromScheme(scheme)
}

type JsonCodec struct{}

func (j JsonCodec) Scheme() string {
	return "json"
}

func (j JsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (j JsonCodec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func init() {
	Register(new(JsonCodec))
	Register(new(ProtoBufCodec))
}
