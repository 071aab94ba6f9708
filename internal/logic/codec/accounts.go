package codec

import (
	"encoding/binary"
	"fmt"

	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"

	"github.com/near/borsh-go"
)

// EscrowStatus 与链上 enum EscrowStatus 的变体顺序一致
type EscrowStatus uint8

const (
	EscrowActive EscrowStatus = iota
	EscrowReleased
	EscrowDisputed
	EscrowResolved
)

func (s EscrowStatus) String() string {
	switch s {
	case EscrowActive:
		return "active"
	case EscrowReleased:
		return "released"
	case EscrowDisputed:
		return "disputed"
	case EscrowResolved:
		return "resolved"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// EscrowAccount 链上 Escrow 账户（去掉 8 字节 discriminator 之后的 borsh 部分）
type EscrowAccount struct {
	Agent            types.Pubkey
	Api              types.Pubkey
	Amount           uint64
	Status           uint8
	CreatedAt        int64
	ExpiresAt        int64
	TransactionID    string
	Bump             uint8
	QualityScore     *uint8
	RefundPercentage *uint8
}

func (e *EscrowAccount) EscrowStatus() EscrowStatus {
	return EscrowStatus(e.Status)
}

// ReputationAccount 链上 EntityReputation 账户
type ReputationAccount struct {
	Entity                 types.Pubkey
	EntityType             uint8 // 0=Agent, 1=Provider
	TotalTransactions      uint64
	DisputesFiled          uint64
	DisputesWon            uint64
	DisputesPartial        uint64
	DisputesLost           uint64
	AverageQualityReceived uint8
	ReputationScore        uint16
	CreatedAt              int64
	LastUpdated            int64
	Bump                   uint8
}

// DecodeEscrowAccount 账户按 INIT_SPACE 分配，字符串较短时尾部会有多余的 0 字节
func DecodeEscrowAccount(data []byte) (*EscrowAccount, error) {
	var acc EscrowAccount
	if err := decodeAccount(data, EscrowAccountTag, "escrow_account", escrowBodyLen, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func DecodeReputationAccount(data []byte) (*ReputationAccount, error) {
	var acc ReputationAccount
	if err := decodeAccount(data, ReputationAccountTag, "reputation_account", reputationBodyLen, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// bodyLenFunc 计算 borsh 部分实际占用的字节数，用于去掉分配空间带来的尾部填充
type bodyLenFunc func(body []byte) (int, bool)

// escrowBodyLen: agent(32) api(32) amount(8) status(1) created_at(8) expires_at(8)
// | transaction_id(4+n) | bump(1) | quality_score(1[+1]) | refund_percentage(1[+1])
func escrowBodyLen(body []byte) (int, bool) {
	const strAt = 32 + 32 + 8 + 1 + 8 + 8
	if len(body) < strAt+4 {
		return 0, false
	}
	n := strAt + 4 + int(binary.LittleEndian.Uint32(body[strAt:strAt+4])) + 1
	for i := 0; i < 2; i++ {
		if n >= len(body) {
			return 0, false
		}
		if body[n] != 0 {
			n++
		}
		n++
	}
	if n > len(body) {
		return 0, false
	}
	return n, true
}

// reputationBodyLen 定长：32+1+8*5+1+2+8+8+1
func reputationBodyLen(body []byte) (int, bool) {
	const n = 32 + 1 + 8*5 + 1 + 2 + 8 + 8 + 1
	return n, len(body) >= n
}

func decodeAccount(data []byte, tag Discriminator, field string, bodyLen bodyLenFunc, out any) (err error) {
	if len(data) < TagLength {
		return errs.InvalidLength(field, TagLength, len(data))
	}
	if Discriminator(data[:TagLength]) != tag {
		return fmt.Errorf("%s: unexpected discriminator %x", field, data[:TagLength])
	}
	body := data[TagLength:]
	n, ok := bodyLen(body)
	if !ok {
		return fmt.Errorf("%s: truncated account data (%d bytes)", field, len(data))
	}
	// borsh 在数据截断时可能 panic，统一转换为 error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: borsh deserialize panic: %v", field, r)
		}
	}()
	if err := borsh.Deserialize(out, body[:n]); err != nil {
		return fmt.Errorf("%s: borsh deserialize: %w", field, err)
	}
	return nil
}

// EncodeEscrowAccount 仅测试与本地模拟使用
func EncodeEscrowAccount(acc *EscrowAccount) ([]byte, error) {
	body, err := borsh.Serialize(*acc)
	if err != nil {
		return nil, err
	}
	return withTag(EscrowAccountTag, body), nil
}

func EncodeReputationAccount(acc *ReputationAccount) ([]byte, error) {
	body, err := borsh.Serialize(*acc)
	if err != nil {
		return nil, err
	}
	return withTag(ReputationAccountTag, body), nil
}
