package eventparser

import (
	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/pkg/types"
)

// escrow 程序通过 emit! 写入日志的事件，字段顺序与链上定义一致

type EscrowInitialized struct {
	Escrow        types.Pubkey
	Agent         types.Pubkey
	Api           types.Pubkey
	Amount        uint64
	ExpiresAt     int64
	TransactionID string
}

type DisputeMarked struct {
	Escrow        types.Pubkey
	Agent         types.Pubkey
	TransactionID string
	Timestamp     int64
}

type DisputeResolved struct {
	Escrow           types.Pubkey
	TransactionID    string
	QualityScore     uint8
	RefundPercentage uint8
	RefundAmount     uint64
	PaymentAmount    uint64
	Verifier         types.Pubkey
}

type FundsReleased struct {
	Escrow        types.Pubkey
	TransactionID string
	Amount        uint64
	Api           types.Pubkey
	Timestamp     int64
}

var (
	EscrowInitializedTag = codec.EventDiscriminator("EscrowInitialized")
	DisputeMarkedTag     = codec.EventDiscriminator("DisputeMarked")
	DisputeResolvedTag   = codec.EventDiscriminator("DisputeResolved")
	FundsReleasedTag     = codec.EventDiscriminator("FundsReleased")
)

// Event 解析结果，Data 为上面的事件结构体指针之一
type Event struct {
	Name string
	Data any
}
