package codec

import (
	"fmt"

	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/pkg/errs"

	"github.com/near/borsh-go"
)

// InitializeEscrowArgs initialize_escrow(amount: u64, time_lock: i64, transaction_id: String)
type InitializeEscrowArgs struct {
	Amount        uint64
	TimeLock      int64
	TransactionID string
}

// Validate 与链上 require! 校验保持一致，提前拒绝必然失败的参数
func (a InitializeEscrowArgs) Validate() error {
	if a.Amount < consts.MinEscrowAmount || a.Amount > consts.MaxEscrowAmount {
		return errs.OutOfRange("amount", fmt.Sprintf("%d..%d lamports", consts.MinEscrowAmount, consts.MaxEscrowAmount), a.Amount)
	}
	if a.TimeLock < consts.MinTimeLock || a.TimeLock > consts.MaxTimeLock {
		return errs.OutOfRange("time_lock", fmt.Sprintf("%d..%d seconds", consts.MinTimeLock, consts.MaxTimeLock), a.TimeLock)
	}
	if len(a.TransactionID) == 0 || len(a.TransactionID) > consts.MaxTransactionID {
		return errs.OutOfRange("transaction_id", fmt.Sprintf("1..%d bytes", consts.MaxTransactionID), len(a.TransactionID))
	}
	return nil
}

func (a InitializeEscrowArgs) Encode() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return EncodeApplication(InitializeEscrowTag, a.Amount, a.TimeLock, a.TransactionID)
}

// ResolveDisputeArgs resolve_dispute(quality_score: u8, refund_percentage: u8, signature: [u8; 64])
type ResolveDisputeArgs struct {
	QualityScore     uint8
	RefundPercentage uint8
	Signature        [SignatureLength]byte
}

func (a ResolveDisputeArgs) Validate() error {
	if a.QualityScore > consts.MaxQualityScore {
		return errs.OutOfRange("quality_score", fmt.Sprintf("0..%d", consts.MaxQualityScore), a.QualityScore)
	}
	if a.RefundPercentage > consts.MaxRefundPercent {
		return errs.OutOfRange("refund_percentage", fmt.Sprintf("0..%d", consts.MaxRefundPercent), a.RefundPercentage)
	}
	return nil
}

func (a ResolveDisputeArgs) Encode() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	body, err := borsh.Serialize(a)
	if err != nil {
		return nil, fmt.Errorf("borsh serialize resolve_dispute args: %w", err)
	}
	return withTag(ResolveDisputeTag, body), nil
}

// DecodeResolveDispute 主要用于测试与日志，校验字段顺序
func DecodeResolveDispute(data []byte) (ResolveDisputeArgs, error) {
	var a ResolveDisputeArgs
	const want = TagLength + 1 + 1 + SignatureLength
	if len(data) != want {
		return a, errs.InvalidLength("resolve_dispute", want, len(data))
	}
	if Discriminator(data[:TagLength]) != ResolveDisputeTag {
		return a, fmt.Errorf("unexpected discriminator %x", data[:TagLength])
	}
	if err := borsh.Deserialize(&a, data[TagLength:]); err != nil {
		return a, fmt.Errorf("borsh deserialize resolve_dispute args: %w", err)
	}
	return a, nil
}

// ResolveDisputeSwitchboardArgs resolve_dispute_switchboard(quality_score: u8, refund_percentage: u8)，
// 质量分由链上读取的 Switchboard pull feed 校验，不需要签名
type ResolveDisputeSwitchboardArgs struct {
	QualityScore     uint8
	RefundPercentage uint8
}

func (a ResolveDisputeSwitchboardArgs) Validate() error {
	return ResolveDisputeArgs{QualityScore: a.QualityScore, RefundPercentage: a.RefundPercentage}.Validate()
}

func (a ResolveDisputeSwitchboardArgs) Encode() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	body, err := borsh.Serialize(a)
	if err != nil {
		return nil, fmt.Errorf("borsh serialize resolve_dispute_switchboard args: %w", err)
	}
	return withTag(ResolveDisputeSwitchboardTag, body), nil
}

// EncodeNoArgs 用于 mark_disputed / release_funds / init_reputation / check_rate_limit 这类无参数指令
func EncodeNoArgs(tag Discriminator) []byte {
	return withTag(tag, nil)
}

func withTag(tag Discriminator, body []byte) []byte {
	buf := make([]byte, 0, TagLength+len(body))
	buf = append(buf, tag[:]...)
	return append(buf, body...)
}

// AttestationMessage 链上校验的消息格式 "{transaction_id}:{quality_score}"
func AttestationMessage(transactionID string, qualityScore uint8) []byte {
	return []byte(fmt.Sprintf("%s:%d", transactionID, qualityScore))
}
