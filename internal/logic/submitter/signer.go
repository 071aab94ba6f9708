package submitter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

const keypairLength = 64

// Signer 提交方身份。具体签名能力由 TransactionSigner 或 SignAndSender 提供，
// 两者都实现时优先使用 SignAndSender。
type Signer interface {
	PublicKey() types.Pubkey
}

// TransactionSigner 只负责签名，由 Submitter 调用 ledger 发送
type TransactionSigner interface {
	Signer
	SignTransaction(ctx context.Context, tx soltypes.Transaction) (soltypes.Transaction, error)
}

// SignAndSender 签名并自行发送（例如钱包），返回交易签名
type SignAndSender interface {
	Signer
	SignAndSendTransaction(ctx context.Context, tx soltypes.Transaction) (string, error)
}

// KeypairSigner 持有本地 ed25519 私钥
type KeypairSigner struct {
	account soltypes.Account
}

// NewKeypairSigner secret 为 64 字节私钥（seed || pubkey）
func NewKeypairSigner(secret []byte) (*KeypairSigner, error) {
	if len(secret) != keypairLength {
		return nil, errs.InvalidLength("secret_key", keypairLength, len(secret))
	}
	account, err := soltypes.AccountFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("load keypair failed: %w", err)
	}
	return &KeypairSigner{account: account}, nil
}

// KeypairFromBase58 解析 base58 编码的 64 字节私钥
func KeypairFromBase58(secret string) (*KeypairSigner, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode base58 secret failed: %w", err)
	}
	return NewKeypairSigner(raw)
}

// LoadKeypairFile 读取 Solana CLI 格式的密钥文件（64 个整数组成的 JSON 数组）
func LoadKeypairFile(path string) (*KeypairSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file %s failed: %w", path, err)
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("parse keypair file %s failed: %w", path, err)
	}
	secret := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, errs.OutOfRange(fmt.Sprintf("keypair[%d]", i), "0..255", v)
		}
		secret[i] = byte(v)
	}
	return NewKeypairSigner(secret)
}

func (k *KeypairSigner) PublicKey() types.Pubkey {
	return types.PubkeyFromCommon(k.account.PublicKey)
}

// Sign 对任意消息签名，返回 64 字节签名
func (k *KeypairSigner) Sign(message []byte) []byte {
	return k.account.Sign(message)
}

func (k *KeypairSigner) SignTransaction(_ context.Context, tx soltypes.Transaction) (soltypes.Transaction, error) {
	idx, ok := signerIndex(tx, k.account.PublicKey)
	if !ok {
		return tx, fmt.Errorf("signer %s is not a required signer of the transaction", k.PublicKey())
	}
	msg, err := tx.Message.Serialize()
	if err != nil {
		return tx, fmt.Errorf("serialize message failed: %w", err)
	}

	sigs := make([]soltypes.Signature, len(tx.Signatures))
	copy(sigs, tx.Signatures)
	sigs[idx] = k.account.Sign(msg)
	tx.Signatures = sigs
	return tx, nil
}
