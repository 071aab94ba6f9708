package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/pkg/logger"
	"escrow-client-sol/pkg/utils"
)

const (
	defaultWatchInterval = 5 * time.Second
	maxWatchWorkers      = 8
)

type fetchResult struct {
	txID    string
	account *codec.EscrowAccount
	err     error
}

// StatusChange escrow 状态变化，Account 为 nil 表示账户已关闭
type StatusChange struct {
	TransactionID string
	Previous      codec.EscrowStatus
	Account       *codec.EscrowAccount
}

// EscrowWatcher 定时读取一组 escrow 账户，在状态变化时回调。
// 实现 go-zero service.Service，可加入 ServiceGroup。
type EscrowWatcher struct {
	escrows  *EscrowService
	interval time.Duration
	txIDs    []string
	onChange func(StatusChange)

	mu   sync.Mutex
	last map[string]codec.EscrowStatus

	ctx      context.Context
	cancel   func(err error)
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewEscrowWatcher(escrows *EscrowService, interval time.Duration, txIDs []string, onChange func(StatusChange)) (*EscrowWatcher, error) {
	if len(txIDs) == 0 {
		return nil, errors.New("no escrow to watch")
	}
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	w := &EscrowWatcher{
		escrows:  escrows,
		interval: interval,
		txIDs:    append([]string(nil), txIDs...),
		onChange: onChange,
		last:     make(map[string]codec.EscrowStatus, len(txIDs)),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}

	// 初始化，首次读取失败不影响启动
	if err := w.update(); err != nil {
		logger.Warnf("[EscrowWatcher] 初始读取失败: %v", err)
	}
	return w, nil
}

func (w *EscrowWatcher) Start() {
	w.scheduleNext()
	<-w.stopChan
}

func (w *EscrowWatcher) scheduleNext() {
	time.AfterFunc(w.interval, func() {
		if err := w.update(); err != nil {
			logger.Warnf("[EscrowWatcher] 周期性读取失败: %v", err)
		}
		// 如果没有被 Stop，就继续调度
		select {
		case <-w.ctx.Done():
			return
		default:
			w.scheduleNext()
		}
	})
}

func (w *EscrowWatcher) Stop() {
	w.cancel(errors.New("EscrowWatcher stop"))
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// Status 返回最近一次观察到的状态
func (w *EscrowWatcher) Status(transactionID string) (codec.EscrowStatus, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.last[transactionID]
	return st, ok
}

func (w *EscrowWatcher) update() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[EscrowWatcher] update panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("update panic: %v", r)
		}
	}()

	results := utils.ParallelMap(w.txIDs, maxWatchWorkers, func(txID string) fetchResult {
		ctx, cancel := context.WithTimeout(w.ctx, w.interval)
		defer cancel()
		acc, _, err := w.escrows.GetEscrow(ctx, txID)
		return fetchResult{txID: txID, account: acc, err: err}
	})

	var failed int
	for _, r := range results {
		switch {
		case errors.Is(r.err, ErrAccountNotFound):
			w.observe(r.txID, nil)
		case r.err != nil:
			failed++
			logger.Warnf("[EscrowWatcher] 读取 escrow 失败: tx=%s err=%v", r.txID, r.err)
		default:
			w.observe(r.txID, r.account)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d escrow 读取失败", failed, len(w.txIDs))
	}
	return nil
}

func (w *EscrowWatcher) observe(txID string, acc *codec.EscrowAccount) {
	w.mu.Lock()
	prev, seen := w.last[txID]
	if acc == nil {
		delete(w.last, txID)
	} else {
		w.last[txID] = acc.EscrowStatus()
	}
	w.mu.Unlock()

	changed := (acc == nil && seen) || (acc != nil && (!seen || prev != acc.EscrowStatus()))
	if !changed {
		return
	}
	if acc != nil {
		logger.Infof("[EscrowWatcher] tx=%s status=%s", txID, acc.EscrowStatus())
	} else {
		logger.Infof("[EscrowWatcher] tx=%s 账户已关闭", txID)
	}
	if w.onChange != nil {
		w.onChange(StatusChange{TransactionID: txID, Previous: prev, Account: acc})
	}
}
