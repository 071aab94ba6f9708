package utils

import "sync"

// ParallelMap 以最多 workers 个 goroutine 并发执行 fn，结果顺序与输入一致
func ParallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	// 单个元素或不允许并发时直接处理
	if len(items) == 1 || workers <= 1 {
		for i, item := range items {
			results[i] = fn(item)
		}
		return results
	}
	if workers > len(items) {
		workers = len(items)
	}

	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = fn(items[i])
			}
		}()
	}
	wg.Wait()
	return results
}
