package pool

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nyan233/littlegate/core/utils/hash"
)

// RecoverFunc 任务panic时调用, poolId为执行任务的goroutine的编号
type RecoverFunc func(poolId int, err interface{})

type Hash interface {
	string | uint64
}

// FixedPool 固定数量的goroutine, 相同Key的任务总是由同一个goroutine按照提交的顺序执行
type FixedPool[Key Hash] struct {
	mu        sync.RWMutex
	closed    bool
	seed      uint32
	inputs    []chan func()
	recoverFn RecoverFunc
	doneCount sync.WaitGroup
	success   atomic.Uint64
	failed    atomic.Uint64
}

func NewFixedPool[Key Hash](bufSize, size int, seed uint32, rf RecoverFunc) *FixedPool[Key] {
	if size <= 0 {
		size = 1
	}
	pool := &FixedPool[Key]{
		seed:      seed,
		inputs:    make([]chan func(), size),
		recoverFn: rf,
	}
	for k := range pool.inputs {
		pool.inputs[k] = make(chan func(), bufSize/size)
	}
	pool.doneCount.Add(size)
	for k, v := range pool.inputs {
		go pool.worker(k, v)
	}
	return pool
}

func (h *FixedPool[Key]) worker(poolId int, input <-chan func()) {
	defer h.doneCount.Done()
	for fn := range input {
		h.exec(poolId, fn)
	}
}

// Push 缓冲区满时阻塞
func (h *FixedPool[Key]) Push(key Key, f func()) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return errors.New("already closed")
	}
	h.hash(key) <- f
	return nil
}

// Stop 执行完已经提交的任务之后返回
func (h *FixedPool[Key]) Stop() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errors.New("already closed")
	}
	h.closed = true
	for _, input := range h.inputs {
		close(input)
	}
	h.mu.Unlock()
	h.doneCount.Wait()
	return nil
}

func (h *FixedPool[Key]) LiveSize() int {
	return len(h.inputs)
}

func (h *FixedPool[Key]) BufSize() int {
	var bufSize int
	for i := 0; i < len(h.inputs); i++ {
		bufSize += len(h.inputs[i])
	}
	return bufSize
}

func (h *FixedPool[Key]) ExecuteSuccess() int {
	return int(h.success.Load())
}

func (h *FixedPool[Key]) ExecuteError() int {
	return int(h.failed.Load())
}

func (h *FixedPool[Key]) exec(poolId int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.failed.Add(1)
			if h.recoverFn != nil {
				h.recoverFn(poolId, r)
			}
		}
	}()
	fn()
	h.success.Add(1)
}

func (h *FixedPool[Key]) hash(key Key) chan<- func() {
	var sum uint32
	switch k := interface{}(key).(type) {
	case string:
		sum = hash.Murmurhash3Onx8632([]byte(k), h.seed)
	case uint64:
		sum = hash.Murmurhash3Onx8632OnUint(k, h.seed)
	}
	return h.inputs[int(sum%uint32(len(h.inputs)))]
}
