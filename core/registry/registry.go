package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

type Option func(e *Entry)

// Anonymous 标记可以在登录之前请求的协议, 比如登录协议本身
func Anonymous() Option {
	return func(e *Entry) {
		e.Anonymous = true
	}
}

// Resetter 实现了Reset的消息在使用完毕后会被回收到对应ProtocolId的池中
type Resetter interface {
	Reset()
}

// Entry 一个ProtocolId对应的注册信息, Handler为nil的是响应/推送类型的消息
type Entry struct {
	Id        uint16
	Type      reflect.Type
	Handler   Handler
	Anonymous bool
	pool      sync.Pool
}

func (e *Entry) newMessage() interface{} {
	return reflect.New(e.Type.Elem()).Interface()
}

type Builder struct {
	entries []*Entry
	errs    []error
}

func NewBuilder() *Builder {
	return &Builder{entries: make([]*Entry, 0, 16)}
}

// Message 注册一个响应/推送类型的消息, proto必须是指针
func (b *Builder) Message(id uint16, proto interface{}, opts ...Option) *Builder {
	return b.add(id, proto, nil, opts)
}

// Handle 注册一个请求类型的消息和它的处理器
func (b *Builder) Handle(id uint16, proto interface{}, handler Handler, opts ...Option) *Builder {
	if handler == nil {
		b.errs = append(b.errs, fmt.Errorf("protocol %d: handler is nil", id))
		return b
	}
	return b.add(id, proto, handler, opts)
}

func (b *Builder) add(id uint16, proto interface{}, handler Handler, opts []Option) *Builder {
	typ := reflect.TypeOf(proto)
	if typ == nil || typ.Kind() != reflect.Pointer {
		b.errs = append(b.errs, fmt.Errorf("protocol %d: message type %v must be a pointer", id, typ))
		return b
	}
	e := &Entry{
		Id:      id,
		Type:    typ,
		Handler: handler,
	}
	for _, opt := range opts {
		opt(e)
	}
	b.entries = append(b.entries, e)
	return b
}

// Build 返回的Registry之后是只读的, 所有重复的ProtocolId/类型都会在返回的错误中列出
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{
		byId:   make(map[uint16]*Entry, len(b.entries)),
		byType: make(map[reflect.Type]uint16, len(b.entries)),
	}
	errs := append([]error(nil), b.errs...)
	for _, e := range b.entries {
		if old, ok := r.byId[e.Id]; ok {
			errs = append(errs, fmt.Errorf("protocol %d: duplicate id, already bound to %v, got %v", e.Id, old.Type, e.Type))
			continue
		}
		if oldId, ok := r.byType[e.Type]; ok {
			errs = append(errs, fmt.Errorf("protocol %d: duplicate type %v, already bound to protocol %d", e.Id, e.Type, oldId))
			continue
		}
		entry := e
		entry.pool.New = entry.newMessage
		r.byId[e.Id] = entry
		r.byType[e.Type] = e.Id
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// MustBuild 注册表不合法时拒绝启动
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Registry 不可变的ProtocolId <-> 类型映射, 所有查询都是O(1)的且goroutine safe
type Registry struct {
	byId   map[uint16]*Entry
	byType map[reflect.Type]uint16
}

// Lookup 没有注册时返回nil
func (r *Registry) Lookup(id uint16) *Entry {
	return r.byId[id]
}

// GetType 返回的是指针类型, 没有注册时返回nil
func (r *Registry) GetType(id uint16) reflect.Type {
	e := r.byId[id]
	if e == nil {
		return nil
	}
	return e.Type
}

func (r *Registry) GetId(typ reflect.Type) (uint16, bool) {
	id, ok := r.byType[typ]
	return id, ok
}

// IdOf 根据消息的动态类型查找ProtocolId
func (r *Registry) IdOf(msg interface{}) (uint16, bool) {
	return r.GetId(reflect.TypeOf(msg))
}

// New 总是分配一个新的消息
func (r *Registry) New(id uint16) interface{} {
	e := r.byId[id]
	if e == nil {
		return nil
	}
	return e.newMessage()
}

// Acquire 从ProtocolId对应的池中获取一个消息, 使用完毕后应该调用Release
func (r *Registry) Acquire(id uint16) interface{} {
	e := r.byId[id]
	if e == nil {
		return nil
	}
	return e.pool.Get()
}

// Release 只回收实现了Resetter的已注册类型, 其它消息交给GC
func (r *Registry) Release(msg interface{}) {
	resetter, ok := msg.(Resetter)
	if !ok {
		return
	}
	id, ok := r.IdOf(msg)
	if !ok {
		return
	}
	resetter.Reset()
	r.byId[id].pool.Put(msg)
}

// Range 按照任意顺序遍历所有的注册信息
func (r *Registry) Range(fn func(e *Entry) bool) {
	for _, e := range r.byId {
		if !fn(e) {
			return
		}
	}
}

func (r *Registry) Len() int {
	return len(r.byId)
}
