package pda

import (
	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/pkg/types"
)

// EscrowAddresses 绑定 escrow 程序 ID，生成程序使用的各类 PDA
type EscrowAddresses struct {
	deriver *Deriver
	program types.Pubkey
}

func NewEscrowAddresses(deriver *Deriver, program types.Pubkey) *EscrowAddresses {
	return &EscrowAddresses{deriver: deriver, program: program}
}

func (e *EscrowAddresses) Program() types.Pubkey {
	return e.program
}

// Escrow seeds = ["escrow", transaction_id]
func (e *EscrowAddresses) Escrow(transactionID string) (DerivedAddress, error) {
	return e.deriver.Derive([][]byte{[]byte(consts.EscrowSeed), []byte(transactionID)}, e.program)
}

// Reputation seeds = ["reputation", entity]
func (e *EscrowAddresses) Reputation(entity types.Pubkey) (DerivedAddress, error) {
	return e.deriver.Derive([][]byte{[]byte(consts.ReputationSeed), entity.Bytes()}, e.program)
}

// RateLimit seeds = ["rate_limit", entity]
func (e *EscrowAddresses) RateLimit(entity types.Pubkey) (DerivedAddress, error) {
	return e.deriver.Derive([][]byte{[]byte(consts.RateLimitSeed), entity.Bytes()}, e.program)
}
