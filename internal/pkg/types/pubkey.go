package types

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

const PubkeyLength = 32

// Pubkey 表示 32 字节的 Solana 账户地址 / 程序 ID
type Pubkey [PubkeyLength]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// MarshalText 使 JSON / YAML 输出为 base58
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := TryPubkeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// Bytes 返回地址的拷贝，可直接作为 PDA seed 使用
func (p Pubkey) Bytes() []byte {
	b := make([]byte, PubkeyLength)
	copy(b, p[:])
	return b
}

// ToCommon 转换为 blocto sdk 的 PublicKey（两者内存布局一致）
func (p Pubkey) ToCommon() common.PublicKey {
	return common.PublicKey(p)
}

func PubkeyFromCommon(pk common.PublicKey) Pubkey {
	return Pubkey(pk)
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	return TryPubkeyFromBytes(data)
}

// TryPubkeyFromBytes 校验长度后拷贝为 Pubkey
func TryPubkeyFromBytes(data []byte) (Pubkey, error) {
	if len(data) != PubkeyLength {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want %d", len(data), PubkeyLength)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 仅用于常量初始化，解析失败直接 panic
func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}
