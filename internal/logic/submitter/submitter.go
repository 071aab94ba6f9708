package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"
	"escrow-client-sol/pkg/logger"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
	blockHeightTimeout    = 5 * time.Second
)

// ErrSignerUnsupported signer 既不能签名也不能签名发送
var ErrSignerUnsupported = errors.New("signer supports neither SignTransaction nor SignAndSendTransaction")

// ConflictFunc 判断失败诊断是否由状态冲突（账户已初始化、状态已被他人修改）引起。
// programs[i] 为交易中第 i 条指令的程序，用于定位 InstructionError 的来源
type ConflictFunc func(diagnostic any, logs []string, programs []types.Pubkey) bool

func accountInUse(diagnostic any, logs []string, _ []types.Pubkey) bool {
	return ledger.IsAccountInUse(diagnostic, logs)
}

type Options struct {
	ConfirmTimeout time.Duration // 从发送成功开始计算
	PollInterval   time.Duration
	Commitment     string // processed / confirmed / finalized
	MaxTxSize      int
	IsConflict     ConflictFunc
}

func (o Options) withDefaults() Options {
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = defaultConfirmTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if ledger.CommitmentRank(o.Commitment) < 0 {
		o.Commitment = ledger.CommitmentConfirmed
	}
	if o.MaxTxSize <= 0 {
		o.MaxTxSize = consts.MaxTransactionSize
	}
	if o.IsConflict == nil {
		o.IsConflict = accountInUse
	}
	return o
}

// Result 交易已达到目标确认级别
type Result struct {
	Signature          string
	Slot               uint64
	ConfirmationStatus string
	SimulationLogs     []string // 预执行日志，包含程序输出的事件
}

// Submitter 串行执行 校验 -> 预执行 -> 签名发送 -> 确认轮询。
// 不持有可变状态，可并发调用 Submit。
type Submitter struct {
	ledger ledger.Client
	opts   Options
}

func New(client ledger.Client, opts Options) *Submitter {
	return &Submitter{ledger: client, opts: opts.withDefaults()}
}

func (s *Submitter) Options() Options {
	return s.opts
}

// Submit 发送失败不会重试；超时返回 *errs.TimeoutError，此时交易是否上链不确定，
// 调用方应先用签名查询状态再决定是否重新提交。
func (s *Submitter) Submit(ctx context.Context, bundle Bundle, signer Signer) (*Result, error) {
	// 1. 本地校验，不访问网络
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, ErrSignerUnsupported
	}
	sender, canSend := signer.(SignAndSender)
	txSigner, canSign := signer.(TransactionSigner)
	if !canSend && !canSign {
		return nil, ErrSignerUnsupported
	}

	var freshness domain.FreshnessToken
	if bundle.Freshness != nil {
		freshness = *bundle.Freshness
	}
	tx := buildTransaction(&bundle, freshness)
	if _, ok := signerIndex(tx, signer.PublicKey().ToCommon()); !ok {
		return nil, fmt.Errorf("signer %s is not a required signer of bundle %v", signer.PublicKey(), bundle.Names())
	}
	if err := checkSize(tx, s.opts.MaxTxSize); err != nil {
		return nil, err
	}

	// 2. blockhash
	if freshness.IsZero() {
		latest, err := s.ledger.GetLatestBlockhash(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch freshness token: %w", err)
		}
		freshness = latest
		tx = buildTransaction(&bundle, freshness)
	}

	// 3. 预执行，失败则不发送
	sim, err := s.ledger.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, &errs.LedgerError{Kind: errs.ErrSimulationFailed, Cause: err}
	}
	if sim.Err != nil {
		kind := errs.ErrSimulationFailed
		if s.opts.IsConflict(sim.Err, sim.Logs, bundle.Programs()) {
			kind = errs.ErrConflictingState
		}
		logger.Warnf("[Submitter] 预执行失败, instructions=%v, err=%v, logs=%d", bundle.Names(), sim.Err, len(sim.Logs))
		return nil, &errs.LedgerError{Kind: kind, Diagnostic: sim.Err, Logs: sim.Logs}
	}

	// 4. 签名并发送，只发送一次
	signature, err := s.send(ctx, tx, sender, canSend, txSigner)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Submitter] 交易已发送, signature=%s, instructions=%v", signature, bundle.Names())

	// 5. 确认
	res, err := s.confirm(ctx, signature, freshness, bundle.Programs())
	if err != nil {
		return nil, err
	}
	res.SimulationLogs = sim.Logs
	return res, nil
}

func (s *Submitter) send(ctx context.Context, tx soltypes.Transaction, sender SignAndSender, canSend bool, txSigner TransactionSigner) (string, error) {
	if canSend {
		sig, err := sender.SignAndSendTransaction(ctx, tx)
		if err != nil {
			return "", &errs.LedgerError{Kind: errs.ErrSendFailed, Signature: sig, Cause: err}
		}
		return sig, nil
	}

	signed, err := txSigner.SignTransaction(ctx, tx)
	if err != nil {
		return "", &errs.LedgerError{Kind: errs.ErrSendFailed, Cause: fmt.Errorf("sign transaction: %w", err)}
	}
	local := transactionSignature(signed)
	sig, err := s.ledger.SendTransaction(ctx, signed)
	if err != nil {
		// 发送失败时交易仍可能已被节点接收，返回本地签名以便调用方查询
		return "", &errs.LedgerError{Kind: errs.ErrSendFailed, Signature: local, Cause: err}
	}
	if sig == "" {
		sig = local
	}
	return sig, nil
}

func (s *Submitter) confirm(ctx context.Context, signature string, freshness domain.FreshnessToken, programs []types.Pubkey) (*Result, error) {
	start := time.Now()
	pollCtx, cancel := context.WithTimeout(ctx, s.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	target := ledger.CommitmentRank(s.opts.Commitment)
	for {
		status, err := s.ledger.GetSignatureStatus(pollCtx, signature)
		switch {
		case err != nil:
			if pollCtx.Err() == nil {
				logger.Warnf("[Submitter] 查询交易状态失败, signature=%s, err=%v", signature, err)
			}
		case status == nil:
		case status.Err != nil:
			kind := errs.ErrTransactionFailed
			if s.opts.IsConflict(status.Err, nil, programs) {
				kind = errs.ErrConflictingState
			}
			return nil, &errs.LedgerError{Kind: kind, Signature: signature, Diagnostic: status.Err}
		case ledger.CommitmentRank(status.ConfirmationStatus) >= target:
			logger.Infof("[Submitter] 交易已确认, signature=%s, slot=%d, status=%s, 耗时=%v",
				signature, status.Slot, status.ConfirmationStatus, time.Since(start))
			return &Result{
				Signature:          signature,
				Slot:               status.Slot,
				ConfirmationStatus: status.ConfirmationStatus,
			}, nil
		}

		select {
		case <-pollCtx.Done():
			return nil, s.timeout(signature, freshness, time.Since(start))
		case <-ticker.C:
		}
	}
}

// timeout 查询一次区块高度判断 blockhash 是否已过期，查询失败时视为未过期
func (s *Submitter) timeout(signature string, freshness domain.FreshnessToken, waited time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), blockHeightTimeout)
	defer cancel()

	expired := false
	if height, err := s.ledger.GetBlockHeight(ctx); err == nil {
		expired = freshness.LastValidBlockHeight > 0 && height > freshness.LastValidBlockHeight
	} else {
		logger.Warnf("[Submitter] 查询区块高度失败, signature=%s, err=%v", signature, err)
	}
	logger.Warnf("[Submitter] 等待确认超时, signature=%s, waited=%v, expired=%v", signature, waited, expired)
	return &errs.TimeoutError{Signature: signature, Waited: waited.Round(time.Millisecond).String(), Expired: expired}
}

// transactionSignature 交易签名即 fee payer 的签名
func transactionSignature(tx soltypes.Transaction) string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0])
}
