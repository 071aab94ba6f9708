package escrowix

import (
	"fmt"

	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/logic/pda"
	"escrow-client-sol/internal/pkg/types"
)

// Builder 按 escrow 程序的账户约束组装指令，账户顺序必须与程序声明一致
type Builder struct {
	addresses *pda.EscrowAddresses
}

func NewBuilder(addresses *pda.EscrowAddresses) *Builder {
	return &Builder{addresses: addresses}
}

func (b *Builder) Addresses() *pda.EscrowAddresses {
	return b.addresses
}

// InitializeEscrow 返回指令以及 escrow PDA
func (b *Builder) InitializeEscrow(agent, api types.Pubkey, args codec.InitializeEscrowArgs) (domain.Instruction, pda.DerivedAddress, error) {
	data, err := args.Encode()
	if err != nil {
		return domain.Instruction{}, pda.DerivedAddress{}, err
	}
	escrow, err := b.addresses.Escrow(args.TransactionID)
	if err != nil {
		return domain.Instruction{}, pda.DerivedAddress{}, fmt.Errorf("derive escrow address: %w", err)
	}
	return domain.Instruction{
		Name:      "initialize_escrow",
		ProgramID: b.addresses.Program(),
		Accounts: []domain.AccountMeta{
			domain.Writable(escrow.Address),
			domain.WritableSigner(agent),
			domain.ReadOnly(api),
			domain.ReadOnly(consts.SystemProgram),
		},
		Data: data,
	}, escrow, nil
}

func (b *Builder) ReleaseFunds(agent, api types.Pubkey, transactionID string) (domain.Instruction, error) {
	escrow, err := b.escrow(transactionID)
	if err != nil {
		return domain.Instruction{}, err
	}
	return domain.Instruction{
		Name:      "release_funds",
		ProgramID: b.addresses.Program(),
		Accounts: []domain.AccountMeta{
			domain.Writable(escrow),
			domain.WritableSigner(agent),
			domain.Writable(api),
			domain.ReadOnly(consts.SystemProgram),
		},
		Data: codec.EncodeNoArgs(codec.ReleaseFundsTag),
	}, nil
}

// MarkDisputed 需要 agent 的 reputation 账户已初始化
func (b *Builder) MarkDisputed(agent types.Pubkey, transactionID string) (domain.Instruction, error) {
	escrow, err := b.escrow(transactionID)
	if err != nil {
		return domain.Instruction{}, err
	}
	reputation, err := b.addresses.Reputation(agent)
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("derive reputation address: %w", err)
	}
	return domain.Instruction{
		Name:      "mark_disputed",
		ProgramID: b.addresses.Program(),
		Accounts: []domain.AccountMeta{
			domain.Writable(escrow),
			domain.Writable(reputation.Address),
			domain.WritableSigner(agent),
		},
		Data: codec.EncodeNoArgs(codec.MarkDisputedTag),
	}, nil
}

// ResolveDispute 链上通过 instructions sysvar 读取 index 0 的签名校验指令，
// 调用方必须把 SignatureVerification 放在它之前
func (b *Builder) ResolveDispute(agent, api, verifier types.Pubkey, transactionID string, args codec.ResolveDisputeArgs) (domain.Instruction, error) {
	data, err := args.Encode()
	if err != nil {
		return domain.Instruction{}, err
	}
	escrow, err := b.escrow(transactionID)
	if err != nil {
		return domain.Instruction{}, err
	}
	agentRep, err := b.addresses.Reputation(agent)
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("derive agent reputation address: %w", err)
	}
	apiRep, err := b.addresses.Reputation(api)
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("derive api reputation address: %w", err)
	}
	return domain.Instruction{
		Name:      "resolve_dispute",
		ProgramID: b.addresses.Program(),
		Accounts: []domain.AccountMeta{
			domain.Writable(escrow),
			domain.Writable(agent),
			domain.Writable(api),
			domain.ReadOnly(verifier),
			domain.ReadOnly(consts.SysvarInstructions),
			domain.Writable(agentRep.Address),
			domain.Writable(apiRep.Address),
			domain.ReadOnly(consts.SystemProgram),
		},
		Data: data,
	}, nil
}

// InitReputation 为 entity 创建 reputation 账户，payer 支付租金
func (b *Builder) InitReputation(entity, payer types.Pubkey) (domain.Instruction, pda.DerivedAddress, error) {
	reputation, err := b.addresses.Reputation(entity)
	if err != nil {
		return domain.Instruction{}, pda.DerivedAddress{}, fmt.Errorf("derive reputation address: %w", err)
	}
	return domain.Instruction{
		Name:      "init_reputation",
		ProgramID: b.addresses.Program(),
		Accounts: []domain.AccountMeta{
			domain.Writable(reputation.Address),
			domain.ReadOnly(entity),
			domain.WritableSigner(payer),
			domain.ReadOnly(consts.SystemProgram),
		},
		Data: codec.EncodeNoArgs(codec.InitReputationTag),
	}, reputation, nil
}

// ResolveDisputeSwitchboard 质量分由 Switchboard pull feed 账户在链上校验，
// 不需要 ed25519 指令，feed 的结果必须与 args.QualityScore 一致且不超过 60 秒
func (b *Builder) ResolveDisputeSwitchboard(agent, api, feed types.Pubkey, transactionID string, args codec.ResolveDisputeSwitchboardArgs) (domain.Instruction, error) {
	data, err := args.Encode()
	if err != nil {
		return domain.Instruction{}, err
	}
	escrow, err := b.escrow(transactionID)
	if err != nil {
		return domain.Instruction{}, err
	}
	agentRep, err := b.addresses.Reputation(agent)
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("derive agent reputation address: %w", err)
	}
	apiRep, err := b.addresses.Reputation(api)
	if err != nil {
		return domain.Instruction{}, fmt.Errorf("derive api reputation address: %w", err)
	}
	return domain.Instruction{
		Name:      "resolve_dispute_switchboard",
		ProgramID: b.addresses.Program(),
		Accounts: []domain.AccountMeta{
			domain.Writable(escrow),
			domain.Writable(agent),
			domain.Writable(api),
			domain.ReadOnly(feed),
			domain.Writable(agentRep.Address),
			domain.Writable(apiRep.Address),
			domain.ReadOnly(consts.SystemProgram),
		},
		Data: data,
	}, nil
}

// CheckRateLimit entity 必须签名，rate_limiter 账户需已存在
func (b *Builder) CheckRateLimit(entity types.Pubkey) (domain.Instruction, pda.DerivedAddress, error) {
	limiter, err := b.addresses.RateLimit(entity)
	if err != nil {
		return domain.Instruction{}, pda.DerivedAddress{}, fmt.Errorf("derive rate limit address: %w", err)
	}
	return domain.Instruction{
		Name:      "check_rate_limit",
		ProgramID: b.addresses.Program(),
		Accounts: []domain.AccountMeta{
			domain.Writable(limiter.Address),
			domain.ReadOnlySigner(entity),
		},
		Data: codec.EncodeNoArgs(codec.CheckRateLimitTag),
	}, limiter, nil
}

func (b *Builder) escrow(transactionID string) (types.Pubkey, error) {
	d, err := b.addresses.Escrow(transactionID)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("derive escrow address: %w", err)
	}
	return d.Address, nil
}

// SignatureVerification Ed25519 原生程序指令，不引用任何账户
func SignatureVerification(signature, publicKey, message []byte) (domain.Instruction, error) {
	data, err := codec.EncodeSignatureVerification(signature, publicKey, message)
	if err != nil {
		return domain.Instruction{}, err
	}
	return domain.Instruction{
		Name:      "ed25519_verify",
		ProgramID: consts.Ed25519Program,
		Data:      data,
	}, nil
}
