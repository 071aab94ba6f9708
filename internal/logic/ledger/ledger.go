package ledger

import (
	"context"

	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/pkg/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// 确认级别，取值与 RPC confirmationStatus 一致
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// CommitmentRank 用于比较确认级别，未知取值返回 -1
func CommitmentRank(c string) int {
	switch c {
	case CommitmentProcessed:
		return 0
	case CommitmentConfirmed:
		return 1
	case CommitmentFinalized:
		return 2
	default:
		return -1
	}
}

// AccountInfo 账户快照
type AccountInfo struct {
	Lamports   uint64
	Owner      types.Pubkey
	Executable bool
	Data       []byte
}

// SimulationResult 预执行结果；Err 非 nil 即表示失败，保留 RPC 返回的原始结构
type SimulationResult struct {
	Err  any
	Logs []string
}

// SignatureStatus 交易状态；Err 非 nil 表示交易已上链但执行失败
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus string
	Err                any
}

// Client 为本模块使用的账本 RPC 能力，所有方法都会阻塞直到返回或 ctx 结束
type Client interface {
	// GetAccountInfo 账户不存在时返回 (nil, nil)
	GetAccountInfo(ctx context.Context, address types.Pubkey) (*AccountInfo, error)
	GetLatestBlockhash(ctx context.Context) (domain.FreshnessToken, error)
	SimulateTransaction(ctx context.Context, tx soltypes.Transaction) (*SimulationResult, error)
	SendTransaction(ctx context.Context, tx soltypes.Transaction) (string, error)
	// GetSignatureStatus 尚未观察到该签名时返回 (nil, nil)
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
}
