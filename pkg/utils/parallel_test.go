package utils

import (
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParallelMap(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		result := ParallelMap([]int(nil), 4, func(i int) int { return i * 2 })
		assert.Empty(t, result)
	})

	t.Run("single input", func(t *testing.T) {
		result := ParallelMap([]int{42}, 4, func(i int) int { return i * 2 })
		assert.Equal(t, []int{84}, result)
	})

	t.Run("multiple inputs with order", func(t *testing.T) {
		result := ParallelMap([]int{1, 2, 3, 4, 5}, 3, func(i int) int {
			// 随机延迟，验证顺序保持
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return i * 2
		})
		assert.Equal(t, []int{2, 4, 6, 8, 10}, result)
	})

	t.Run("concurrency bounded by workers", func(t *testing.T) {
		input := make([]int, 100)
		for i := range input {
			input[i] = i
		}

		var current, peak int32
		ParallelMap(input, 10, func(i int) int {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&current, -1)
			return i
		})
		assert.LessOrEqual(t, peak, int32(10))
		assert.Greater(t, peak, int32(1))
	})
}
