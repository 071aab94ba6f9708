package submitter

import (
	"errors"
	"fmt"

	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"

	"github.com/blocto/solana-go-sdk/common"
	soltypes "github.com/blocto/solana-go-sdk/types"
)

var errEmptyBundle = errors.New("bundle has no instructions")

// Bundle 一笔交易中按顺序执行的指令集合。
// 签名校验指令只能位于 index 0，程序通过 instructions sysvar 按位置读取它。
type Bundle struct {
	Instructions []domain.Instruction
	FeePayer     types.Pubkey
	Freshness    *domain.FreshnessToken // 为空时提交前获取最新 blockhash
}

// Validate 只做本地校验，不访问网络
func (b *Bundle) Validate() error {
	if len(b.Instructions) == 0 {
		return errEmptyBundle
	}
	if b.FeePayer.IsZero() {
		return errs.OutOfRange("fee_payer", "non-zero pubkey", b.FeePayer.String())
	}
	for i, ix := range b.Instructions {
		if ix.ProgramID.IsZero() {
			return errs.OutOfRange(fmt.Sprintf("instructions[%d].program_id", i), "non-zero pubkey", ix.ProgramID.String())
		}
		if i > 0 && ix.IsSignatureVerification() {
			return &errs.BundleOrderingError{
				Index:  i,
				Reason: fmt.Sprintf("signature verification %q must be the first instruction", ix.Name),
			}
		}
	}
	return nil
}

// Names 用于日志
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.Instructions))
	for _, ix := range b.Instructions {
		names = append(names, ix.Name)
	}
	return names
}

// Programs 按指令顺序返回程序 id，下标与 InstructionError 的指令序号一致
func (b *Bundle) Programs() []types.Pubkey {
	programs := make([]types.Pubkey, 0, len(b.Instructions))
	for _, ix := range b.Instructions {
		programs = append(programs, ix.ProgramID)
	}
	return programs
}

// buildTransaction 组装未签名交易，签名位以 0 填充。
// freshness 为零值时使用全零 blockhash，序列化长度不变，可用于发送前的尺寸检查。
func buildTransaction(b *Bundle, freshness domain.FreshnessToken) soltypes.Transaction {
	ixs := make([]soltypes.Instruction, 0, len(b.Instructions))
	for _, ix := range b.Instructions {
		ixs = append(ixs, ix.ToSDK())
	}
	msg := soltypes.NewMessage(soltypes.NewMessageParam{
		FeePayer:        b.FeePayer.ToCommon(),
		Instructions:    ixs,
		RecentBlockhash: freshness.Blockhash.String(),
	})

	sigs := make([]soltypes.Signature, msg.Header.NumRequireSignatures)
	for i := range sigs {
		sigs[i] = make([]byte, 64)
	}
	return soltypes.Transaction{Signatures: sigs, Message: msg}
}

// checkSize 序列化后的交易不得超过单笔交易上限
func checkSize(tx soltypes.Transaction, limit int) error {
	raw, err := tx.Serialize()
	if err != nil {
		return fmt.Errorf("serialize transaction failed: %w", err)
	}
	if len(raw) > limit {
		return errs.TooLarge("transaction", limit, len(raw))
	}
	return nil
}

// signerIndex 返回 pubkey 在必需签名账户中的位置
func signerIndex(tx soltypes.Transaction, pubkey common.PublicKey) (int, bool) {
	n := int(tx.Message.Header.NumRequireSignatures)
	for i := 0; i < n && i < len(tx.Message.Accounts); i++ {
		if tx.Message.Accounts[i] == pubkey {
			return i, true
		}
	}
	return -1, false
}
