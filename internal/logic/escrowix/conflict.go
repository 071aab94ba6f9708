package escrowix

import (
	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/pkg/types"
)

// IsConflict PDA 已被初始化，或 escrow 状态已被其他交易改变（InvalidStatus）。
// 自定义错误码只在出错指令属于 escrow 程序时才视为冲突，
// ed25519 预编译等其他程序的 Custom(0) 属于普通失败。
func (b *Builder) IsConflict(diagnostic any, logs []string, programs []types.Pubkey) bool {
	if ledger.IsAccountInUse(diagnostic, logs) {
		return true
	}
	ie, ok := ledger.ParseInstructionError(diagnostic)
	if !ok || ie.Custom == nil {
		return false
	}
	if ie.Index < 0 || ie.Index >= len(programs) || programs[ie.Index] != b.addresses.Program() {
		return false
	}
	// escrow 指令内 system program CPI 的 Custom(0) 即 AccountAlreadyInUse
	return *ie.Custom == 0 || *ie.Custom == codec.ErrCodeInvalidStatus
}

// DescribeFailure 将 InstructionError 转为可读描述，无法解析时返回 ""
func DescribeFailure(diagnostic any) string {
	ie, ok := ledger.ParseInstructionError(diagnostic)
	if !ok {
		return ""
	}
	if ie.Custom != nil {
		return codec.ProgramErrorName(*ie.Custom)
	}
	return ie.Name
}
