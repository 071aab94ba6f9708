package domain

import (
	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/pkg/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// AccountMeta 指令引用的账户及其权限
type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

func Writable(p types.Pubkey) AccountMeta       { return AccountMeta{Pubkey: p, IsWritable: true} }
func ReadOnly(p types.Pubkey) AccountMeta       { return AccountMeta{Pubkey: p} }
func WritableSigner(p types.Pubkey) AccountMeta { return AccountMeta{Pubkey: p, IsSigner: true, IsWritable: true} }
func ReadOnlySigner(p types.Pubkey) AccountMeta { return AccountMeta{Pubkey: p, IsSigner: true} }

// Instruction 表示一条待提交的指令。Data 为 codec 产出的完整指令数据，构造后不再修改。
type Instruction struct {
	Name      string        // 仅用于日志，例如 "initialize_escrow"
	ProgramID types.Pubkey  // 所调用的程序地址
	Accounts  []AccountMeta // 账户列表，保持程序期望的顺序
	Data      []byte        // 指令数据
}

// IsSignatureVerification 是否为 Ed25519 原生程序的签名校验指令
func (ix Instruction) IsSignatureVerification() bool {
	return ix.ProgramID == consts.Ed25519Program
}

// ToSDK 转换为 blocto sdk 的指令结构
func (ix Instruction) ToSDK() soltypes.Instruction {
	metas := make([]soltypes.AccountMeta, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		metas = append(metas, soltypes.AccountMeta{
			PubKey:     a.Pubkey.ToCommon(),
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		})
	}
	return soltypes.Instruction{
		ProgramID: ix.ProgramID.ToCommon(),
		Accounts:  metas,
		Data:      append([]byte(nil), ix.Data...),
	}
}
