package consts

import (
	"escrow-client-sol/internal/pkg/types"
)

// 公钥形式的地址常量（types.Pubkey），用于指令构造与比对
var (
	SystemProgram      types.Pubkey
	Ed25519Program     types.Pubkey
	SysvarInstructions types.Pubkey

	DefaultEscrowProgram types.Pubkey
)

// init 自动将 base58 字符串地址转换为 types.Pubkey
func init() {
	SystemProgram = types.PubkeyFromBase58(SystemProgramStr)
	Ed25519Program = types.PubkeyFromBase58(Ed25519ProgramStr)
	SysvarInstructions = types.PubkeyFromBase58(SysvarInstructionsStr)

	DefaultEscrowProgram = types.PubkeyFromBase58(DefaultEscrowProgramStr)
}
