package container

import (
	"sync"
	"sync/atomic"
)

type RCUMapElement[Key comparable, Val any] struct {
	Key   Key
	Value Val
}

// RCUMap 这个Map的实现只适合少量key-value, 或者几乎无写的场景
// 在大量key-value时拷贝数据的开销很大
type RCUMap[Key comparable, Val any] struct {
	mu      sync.Mutex // 串行写入操作, 读取操作不需要上锁
	pointer atomic.Pointer[map[Key]Val]
}

func NewRCUMap[K comparable, V any]() *RCUMap[K, V] {
	m := new(RCUMap[K, V])
	tmp := make(map[K]V, 16)
	m.pointer.Store(&tmp)
	return m
}

func (R *RCUMap[Key, Val]) LoadOk(key Key) (Val, bool) {
	snapshot := R.pointer.Load()
	val, ok := (*snapshot)[key]
	return val, ok
}

func (R *RCUMap[Key, Val]) Range(fn func(key Key, val Val) bool) {
	snapshot := R.pointer.Load()
	for k, v := range *snapshot {
		if !fn(k, v) {
			break
		}
	}
}

func (R *RCUMap[Key, Val]) Store(key Key, val Val) {
	R.StoreMulti([]RCUMapElement[Key, Val]{{Key: key, Value: val}})
}

func (R *RCUMap[Key, Val]) StoreMulti(kvs []RCUMapElement[Key, Val]) {
	if len(kvs) == 0 {
		return
	}
	R.mu.Lock()
	defer R.mu.Unlock()
	copyMap := R.copy()
	for _, kv := range kvs {
		copyMap[kv.Key] = kv.Value
	}
	R.pointer.Store(&copyMap)
}

// Update 在写锁内基于旧值计算新值, keep为false时删除key
// fn不能修改old指向的共享数据, 读者可能正在读取它
func (R *RCUMap[Key, Val]) Update(key Key, fn func(old Val, ok bool) (val Val, keep bool)) {
	R.mu.Lock()
	defer R.mu.Unlock()
	copyMap := R.copy()
	old, ok := copyMap[key]
	val, keep := fn(old, ok)
	if keep {
		copyMap[key] = val
	} else {
		delete(copyMap, key)
	}
	R.pointer.Store(&copyMap)
}

func (R *RCUMap[Key, Val]) DeleteOk(key Key) (Val, bool) {
	R.mu.Lock()
	defer R.mu.Unlock()
	copyMap := R.copy()
	val, ok := copyMap[key]
	if !ok {
		return val, false
	}
	delete(copyMap, key)
	R.pointer.Store(&copyMap)
	return val, true
}

func (R *RCUMap[Key, Val]) Delete(key Key) {
	R.DeleteOk(key)
}

func (R *RCUMap[Key, Val]) Len() int {
	return len(*R.pointer.Load())
}

func (R *RCUMap[Key, Val]) copy() map[Key]Val {
	snapshot := *R.pointer.Load()
	copyMap := make(map[Key]Val, len(snapshot)+1)
	for k, v := range snapshot {
		copyMap[k] = v
	}
	return copyMap
}
