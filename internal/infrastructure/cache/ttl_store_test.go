package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLStore_GetSet(t *testing.T) {
	s := NewTTLStore[string]("test", time.Second, 10)
	defer s.Close()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("k", "v")
	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLStore_Expiry(t *testing.T) {
	s := NewTTLStore[int]("test", 30*time.Millisecond, 10)
	defer s.Close()

	s.Set("k", 1)
	_, ok := s.Get("k")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = s.Get("k")
	assert.False(t, ok, "过期条目应视为未命中")
}

func TestTTLStore_CapacityEvictsOldest(t *testing.T) {
	s := NewTTLStore[int]("test", time.Minute, 3)
	defer s.Close()

	s.Set("a", 1)
	time.Sleep(time.Millisecond)
	s.Set("b", 2)
	time.Sleep(time.Millisecond)
	s.Set("c", 3)
	s.Set("d", 4)

	assert.Equal(t, 3, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok, "最旧条目应被淘汰")
	_, ok = s.Get("d")
	assert.True(t, ok)
}

func TestTTLStore_SetExistingKeyDoesNotEvict(t *testing.T) {
	s := NewTTLStore[int]("test", time.Minute, 2)
	defer s.Close()

	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 10)

	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	got, _ = s.Get("a")
	assert.Equal(t, 10, got)
}

func TestTTLStore_GetOrLoad(t *testing.T) {
	s := NewTTLStore[string]("test", time.Minute, 10)
	defer s.Close()

	var calls atomic.Int32
	loader := func() (string, error) {
		calls.Add(1)
		return "loaded", nil
	}

	got, err := s.GetOrLoad("k", loader)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got)

	// 第二次命中缓存，loader 不再调用
	got, err = s.GetOrLoad("k", loader)
	require.NoError(t, err)
	assert.Equal(t, "loaded", got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTTLStore_GetOrLoadError(t *testing.T) {
	s := NewTTLStore[string]("test", time.Minute, 10)
	defer s.Close()

	wantErr := errors.New("load failed")
	_, err := s.GetOrLoad("k", func() (string, error) {
		return "", wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// 失败不回填
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestTTLStore_ConcurrentAccess(t *testing.T) {
	s := NewTTLStore[int]("test", time.Minute, 100)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("k-%d", j%20)
				s.Set(key, n*100+j)
				s.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 100)
}

func TestTTLStore_GetOrLoadSingleflight(t *testing.T) {
	s := NewTTLStore[string]("test", time.Minute, 10)
	defer s.Close()

	var calls atomic.Int32
	start := make(chan struct{})
	loader := func() (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := s.GetOrLoad("same-key", loader)
			assert.NoError(t, err)
			assert.Equal(t, "v", got)
		}()
	}
	close(start)
	wg.Wait()

	// 并发未命中合并为一次加载
	assert.Equal(t, int32(1), calls.Load())
}
