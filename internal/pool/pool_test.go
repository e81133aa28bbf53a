package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedPoolOrder(t *testing.T) {
	pool := NewFixedPool[uint64](1024, 4, 7, nil)
	var mu sync.Mutex
	got := make(map[uint64][]int)
	for i := 0; i < 1000; i++ {
		key := uint64(i % 10)
		seq := i
		require.NoError(t, pool.Push(key, func() {
			mu.Lock()
			got[key] = append(got[key], seq)
			mu.Unlock()
		}))
	}
	require.NoError(t, pool.Stop())
	for key, seqs := range got {
		assert.Len(t, seqs, 100)
		for i := 1; i < len(seqs); i++ {
			assert.Less(t, seqs[i-1], seqs[i], "key %d", key)
		}
	}
	assert.Equal(t, 1000, pool.ExecuteSuccess())
	assert.Error(t, pool.Push(1, func() {}))
	assert.Error(t, pool.Stop())
}

func TestFixedPoolRecover(t *testing.T) {
	var recovered []interface{}
	pool := NewFixedPool[string](16, 2, 0, func(poolId int, err interface{}) {
		recovered = append(recovered, err)
	})
	require.NoError(t, pool.Push("a", func() {
		panic("boom")
	}))
	var ran bool
	require.NoError(t, pool.Push("a", func() {
		ran = true
	}))
	require.NoError(t, pool.Stop())
	assert.True(t, ran)
	assert.Equal(t, []interface{}{"boom"}, recovered)
	assert.Equal(t, 1, pool.ExecuteError())
	assert.Equal(t, 1, pool.ExecuteSuccess())
	assert.Equal(t, 2, pool.LiveSize())
	assert.Equal(t, 0, pool.BufSize())
}

func BenchmarkFixedPool(b *testing.B) {
	pool := NewFixedPool[uint64](4096, 8, 0, nil)
	defer pool.Stop()
	b.ReportAllocs()
	var wg sync.WaitGroup
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		_ = pool.Push(uint64(i), wg.Done)
	}
	wg.Wait()
}
