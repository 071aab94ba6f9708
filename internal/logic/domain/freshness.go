package domain

import "escrow-client-sol/internal/pkg/types"

// FreshnessToken 即 recent blockhash，交易只在 LastValidBlockHeight 之前有效
type FreshnessToken struct {
	Blockhash            types.Hash
	LastValidBlockHeight uint64
}

func (f FreshnessToken) IsZero() bool {
	return f.Blockhash.IsZero()
}
