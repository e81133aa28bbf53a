package actor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lafikl/consistent"
	"github.com/nyan233/littlegate/core/common/errorhandler"
	"github.com/nyan233/littlegate/core/common/logger"
	perror "github.com/nyan233/littlegate/core/protocol/error"
)

type kindDesc struct {
	factory Factory
	// 只能通过Spawn创建, 消息不会激活它
	spawnOnly bool
}

type KindOption func(desc *kindDesc)

// SpawnOnly 这类Actor与外部资源(比如连接)绑定, 停止之后发给它的消息得到ActorUnreachable
func SpawnOnly() KindOption {
	return func(desc *kindDesc) {
		desc.spawnOnly = true
	}
}

type shard struct {
	mu     sync.Mutex
	actors map[Key]*cell
	// 已经停止但是还没有退出的cell
	stopping map[Key]*cell
}

// System 本地的Actor运行时, 每个Key一个goroutine和一个FIFO邮箱
type System struct {
	config  Config
	logger  logger.LLogger
	eHandle perror.LErrors
	kinds   sync.Map // string -> *kindDesc
	shards  []*shard
	ring    *consistent.Consistent
	closed  atomic.Bool
	wg      sync.WaitGroup
}

func NewSystem(opts ...Option) *System {
	cfg := &Config{}
	WithDefaultSystem()(cfg)
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.fix()
	s := &System{
		config:  *cfg,
		logger:  cfg.Logger,
		eHandle: cfg.ErrHandler,
		shards:  make([]*shard, cfg.Shards),
		ring:    consistent.New(),
	}
	for i := range s.shards {
		s.shards[i] = &shard{
			actors:   make(map[Key]*cell, 64),
			stopping: make(map[Key]*cell),
		}
		s.ring.Add(strconv.Itoa(i))
	}
	return s
}

// Register 注册一种Actor, 相同的kind重复注册会panic
func (s *System) Register(kind string, factory Factory, opts ...KindOption) {
	if kind == "" || factory == nil {
		panic("actor kind or factory is empty")
	}
	desc := &kindDesc{factory: factory}
	for _, opt := range opts {
		opt(desc)
	}
	if _, loaded := s.kinds.LoadOrStore(kind, desc); loaded {
		panic(fmt.Sprintf("actor kind %s already registered", kind))
	}
}

func (s *System) shardOf(key Key) *shard {
	name, err := s.ring.Get(key.String())
	if err != nil {
		return s.shards[0]
	}
	index, err := strconv.Atoi(name)
	if err != nil || index < 0 || index >= len(s.shards) {
		return s.shards[0]
	}
	return s.shards[index]
}

func (s *System) unreachable(key Key, reason string) perror.LErrorDesc {
	return s.eHandle.LWarpErrorDesc(errorhandler.ErrActorUnreachable, fmt.Sprintf("%s: %s", key, reason))
}

// Spawn 显式地用receiver创建一个Actor, Key已经存在时返回ActorUnreachable
func (s *System) Spawn(key Key, receiver Receiver) perror.LErrorDesc {
	sd := s.shardOf(key)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	if s.closed.Load() {
		return s.unreachable(key, "system closed")
	}
	if _, ok := sd.actors[key]; ok {
		return s.unreachable(key, "actor already exists")
	}
	s.startLocked(sd, key, receiver)
	return nil
}

func (s *System) startLocked(sd *shard, key Key, receiver Receiver) *cell {
	c := &cell{
		key:      key,
		receiver: receiver,
		inbox:    make(chan envelope, s.config.MailboxSize),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
		system:   s,
		prev:     sd.stopping[key],
	}
	sd.actors[key] = c
	s.wg.Add(1)
	go c.run()
	s.logger.Debug("actor %s activated", key)
	return c
}

// deliver 在分片的锁内完成激活和入队, 保证已经停止的Actor不会再收到消息
// Factory也在锁内执行, 所以它不能再访问System
func (s *System) deliver(key Key, env envelope) perror.LErrorDesc {
	sd := s.shardOf(key)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	if s.closed.Load() {
		return s.unreachable(key, "system closed")
	}
	c, ok := sd.actors[key]
	if !ok {
		v, ok := s.kinds.Load(key.Kind)
		if !ok {
			return s.unreachable(key, "unknown actor kind")
		}
		desc := v.(*kindDesc)
		if desc.spawnOnly {
			return s.unreachable(key, "actor not running")
		}
		receiver, err := desc.factory(key)
		if err != nil {
			return s.unreachable(key, err.Error())
		}
		c = s.startLocked(sd, key, receiver)
	}
	select {
	case c.inbox <- env:
		return nil
	default:
		return s.unreachable(key, "mailbox is full")
	}
}

func (s *System) detach(c *cell) {
	sd := s.shardOf(c.key)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	if sd.actors[c.key] == c {
		delete(sd.actors, c.key)
		sd.stopping[c.key] = c
	}
}

// forget 在cell退出之后调用, 之后同一个Key的新cell不需要再等待它
func (s *System) forget(c *cell) {
	sd := s.shardOf(c.key)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	if sd.stopping[c.key] == c {
		delete(sd.stopping, c.key)
	}
}

// Send 投递一条不需要回复的消息, 只有投递失败时才返回错误
func (s *System) Send(ctx context.Context, key Key, method int, payload interface{}) perror.LErrorDesc {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.deliver(key, envelope{
		ctx:     context.WithoutCancel(ctx),
		method:  method,
		payload: payload,
	})
}

// Call 投递一条消息并等待它被处理, 等待时间不会超过CallTimeout
func (s *System) Call(ctx context.Context, key Key, method int, payload interface{}) (interface{}, perror.LErrorDesc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, s.eHandle.LWarpErrorDesc(errorhandler.ErrRequestCanceled, key.String())
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()
	replyCh := make(chan reply, 1)
	err := s.deliver(key, envelope{
		ctx:     ctx,
		method:  method,
		payload: payload,
		reply:   replyCh,
	})
	if err != nil {
		return nil, err
	}
	select {
	case r := <-replyCh:
		return r.result, r.err
	case <-ctx.Done():
		if ctx.Err() == context.Canceled {
			return nil, s.eHandle.LWarpErrorDesc(errorhandler.ErrRequestCanceled, key.String())
		}
		return nil, s.eHandle.LWarpErrorDesc(errorhandler.ErrTimeout, fmt.Sprintf("call %s method %d", key, method))
	}
}

// Stop 停止一个Actor, 邮箱中还没有处理的Call会得到ActorUnreachable
// 正在执行的一轮不会被打断, 在它退出之前同一个Key重新激活的Actor不会开始执行
func (s *System) Stop(key Key) bool {
	sd := s.shardOf(key)
	sd.mu.Lock()
	c, ok := sd.actors[key]
	if ok {
		c.stopped = true
		delete(sd.actors, key)
		sd.stopping[key] = c
	}
	sd.mu.Unlock()
	if ok {
		c.stop()
	}
	return ok
}

func (s *System) Active(key Key) bool {
	sd := s.shardOf(key)
	sd.mu.Lock()
	defer sd.mu.Unlock()
	_, ok := sd.actors[key]
	return ok
}

// Len 当前活跃的Actor数量
func (s *System) Len() int {
	var n int
	for _, sd := range s.shards {
		sd.mu.Lock()
		n += len(sd.actors)
		sd.mu.Unlock()
	}
	return n
}

// Shutdown 停止所有的Actor并等待它们退出, 之后的投递都会失败
func (s *System) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	for _, sd := range s.shards {
		sd.mu.Lock()
		cells := make([]*cell, 0, len(sd.actors))
		for key, c := range sd.actors {
			c.stopped = true
			delete(sd.actors, key)
			cells = append(cells, c)
		}
		sd.mu.Unlock()
		for _, c := range cells {
			c.stop()
		}
	}
	s.wg.Wait()
}

func (s *System) CallTimeout() time.Duration {
	return s.config.CallTimeout
}
