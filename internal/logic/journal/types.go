package journal

import "context"

// SubmissionStatus 调用方视角的提交状态（统一 Redis 编码）
type SubmissionStatus int

const (
	StatusUnknown   SubmissionStatus = 0 // Redis 不存在
	StatusPending   SubmissionStatus = 1 // 已发送，等待确认
	StatusConfirmed SubmissionStatus = 2 // 已达到目标确认级别
	StatusTimedOut  SubmissionStatus = 3 // 等待超时，结果不确定
	StatusFailed    SubmissionStatus = 4 // 链上执行失败
)

func (s SubmissionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusTimedOut:
		return "timed_out"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Journal 记录已发送交易的签名，用于超时后查询而不是盲目重发
type Journal interface {
	MarkSubmission(ctx context.Context, signature, transactionID string, status SubmissionStatus) error
	GetSubmission(ctx context.Context, signature string) (SubmissionStatus, error)
	// LastSignature 返回某个 escrow 最近一次提交的签名，不存在时返回 ""
	LastSignature(ctx context.Context, transactionID string) (string, error)
}

// Nop 未配置 Redis 时使用
type Nop struct{}

func (Nop) MarkSubmission(context.Context, string, string, SubmissionStatus) error { return nil }
func (Nop) GetSubmission(context.Context, string) (SubmissionStatus, error)        { return StatusUnknown, nil }
func (Nop) LastSignature(context.Context, string) (string, error)                  { return "", nil }
