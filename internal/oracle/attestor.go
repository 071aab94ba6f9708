package oracle

import (
	"fmt"

	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/logic/escrowix"
	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"
)

// KeySigner 验证方私钥。密钥只能由调用方注入（密钥文件、KMS、HSM），
// 不允许由可预测的种子生成。
type KeySigner interface {
	PublicKey() types.Pubkey
	Sign(message []byte) []byte
}

// Attestation 验证方对 "{transaction_id}:{quality_score}" 的签名
type Attestation struct {
	TransactionID string
	QualityScore  uint8
	Message       []byte
	Signature     [codec.SignatureLength]byte
	PublicKey     types.Pubkey
}

type Attestor struct {
	signer KeySigner
}

func NewAttestor(signer KeySigner) *Attestor {
	return &Attestor{signer: signer}
}

func (a *Attestor) PublicKey() types.Pubkey {
	return a.signer.PublicKey()
}

func (a *Attestor) Attest(transactionID string, qualityScore uint8) (Attestation, error) {
	if len(transactionID) == 0 || len(transactionID) > consts.MaxTransactionID {
		return Attestation{}, errs.OutOfRange("transaction_id", fmt.Sprintf("1..%d bytes", consts.MaxTransactionID), len(transactionID))
	}
	if qualityScore > consts.MaxQualityScore {
		return Attestation{}, errs.OutOfRange("quality_score", fmt.Sprintf("0..%d", consts.MaxQualityScore), qualityScore)
	}

	msg := codec.AttestationMessage(transactionID, qualityScore)
	sig := a.signer.Sign(msg)
	if len(sig) != codec.SignatureLength {
		return Attestation{}, errs.InvalidLength("signature", codec.SignatureLength, len(sig))
	}

	att := Attestation{
		TransactionID: transactionID,
		QualityScore:  qualityScore,
		Message:       msg,
		PublicKey:     a.signer.PublicKey(),
	}
	copy(att.Signature[:], sig)
	return att, nil
}

// Instruction 签名校验指令，必须位于交易的第一条
func (att Attestation) Instruction() (domain.Instruction, error) {
	return escrowix.SignatureVerification(att.Signature[:], att.PublicKey.Bytes(), att.Message)
}

// ResolveArgs refundPercentage 由调用方的业务规则决定
func (att Attestation) ResolveArgs(refundPercentage uint8) codec.ResolveDisputeArgs {
	return codec.ResolveDisputeArgs{
		QualityScore:     att.QualityScore,
		RefundPercentage: refundPercentage,
		Signature:        att.Signature,
	}
}
