package pda

import (
	"fmt"

	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"

	"github.com/blocto/solana-go-sdk/common"
)

// FindFunc 为外部注入的推导原语：给定 seeds 与 namespace（程序 ID），
// 返回地址与 bump；所有 bump 候选都失败时返回 error。
type FindFunc func(seeds [][]byte, namespace types.Pubkey) (types.Pubkey, uint8, error)

// SolanaFind 使用 blocto sdk 的 FindProgramAddress，bump 从 255 递减搜索，
// 结果即链上 Anchor `bump` 约束所要求的 canonical bump。
func SolanaFind(seeds [][]byte, namespace types.Pubkey) (types.Pubkey, uint8, error) {
	addr, bump, err := common.FindProgramAddress(seeds, namespace.ToCommon())
	if err != nil {
		return types.Pubkey{}, 0, err
	}
	return types.PubkeyFromCommon(addr), bump, nil
}

// DerivedAddress PDA 地址及其 bump
type DerivedAddress struct {
	Address types.Pubkey
	Bump    uint8
}

// Deriver 无状态，可并发使用
type Deriver struct {
	find FindFunc
}

// NewDeriver find 为 nil 时使用 SolanaFind
func NewDeriver(find FindFunc) *Deriver {
	if find == nil {
		find = SolanaFind
	}
	return &Deriver{find: find}
}

// Derive 校验 seed 限制后调用推导原语。同样的输入总是得到同样的结果，不做任何 I/O。
func (d *Deriver) Derive(seeds [][]byte, namespace types.Pubkey) (DerivedAddress, error) {
	if err := validateSeeds(seeds); err != nil {
		return DerivedAddress{}, err
	}

	// 拷贝一份，避免推导原语或调用方修改底层数组
	owned := make([][]byte, len(seeds))
	for i, s := range seeds {
		owned[i] = append([]byte(nil), s...)
	}

	addr, bump, err := d.find(owned, namespace)
	if err != nil {
		return DerivedAddress{}, &errs.DerivationError{Seeds: owned, Namespace: namespace.String(), Cause: err}
	}
	return DerivedAddress{Address: addr, Bump: bump}, nil
}

func validateSeeds(seeds [][]byte) error {
	// bump 本身占用一个 seed 位置
	maxUserSeeds := consts.MaxSeeds - 1
	if len(seeds) == 0 || len(seeds) > maxUserSeeds {
		return errs.OutOfRange("seeds", fmt.Sprintf("1..%d seeds", maxUserSeeds), len(seeds))
	}
	for i, s := range seeds {
		if len(s) > consts.MaxSeedLength {
			return errs.OutOfRange(fmt.Sprintf("seeds[%d]", i), fmt.Sprintf("<= %d bytes", consts.MaxSeedLength), len(s))
		}
	}
	return nil
}
