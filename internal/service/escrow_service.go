package service

import (
	"context"
	"errors"
	"fmt"

	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/logic/escrowix"
	"escrow-client-sol/internal/logic/eventparser"
	"escrow-client-sol/internal/logic/journal"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/logic/pda"
	"escrow-client-sol/internal/logic/submitter"
	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"
	"escrow-client-sol/internal/svc"
	"escrow-client-sol/pkg/logger"

	"github.com/google/uuid"
)

// generatedIDLength 自动生成的交易 id 取 uuid 字符串的前 16 位
const generatedIDLength = 16

var (
	ErrAgentMissing    = errors.New("agent signer not configured")
	ErrVerifierMissing = errors.New("verifier key not configured")
	ErrAccountNotFound = errors.New("account not found")
	ErrWrongOwner      = errors.New("account not owned by escrow program")
)

// EscrowService 组合 地址推导、指令编码、交易提交 提供 escrow 的完整操作
type EscrowService struct {
	svc *svc.ServiceContext
}

func NewEscrowService(ctx *svc.ServiceContext) *EscrowService {
	return &EscrowService{svc: ctx}
}

type CreateEscrowRequest struct {
	Api           types.Pubkey
	Amount        uint64 // lamports
	TimeLock      int64  // 秒
	TransactionID string
}

// Receipt 提交结果、相关的 PDA 以及预执行中程序输出的事件
type Receipt struct {
	submitter.Result
	TransactionID string
	Address       pda.DerivedAddress
	Events        []eventparser.Event
}

// NewTransactionID 生成随机交易 id，长度满足程序的 transaction_id 限制
func NewTransactionID() string {
	return uuid.NewString()[:generatedIDLength]
}

// CreateEscrow 由 agent 锁定资金，TransactionID 为空时自动生成，结果中的 TransactionID 为实际使用的值
func (s *EscrowService) CreateEscrow(ctx context.Context, req CreateEscrowRequest) (*Receipt, error) {
	agent, err := s.agent()
	if err != nil {
		return nil, err
	}
	if req.TransactionID == "" {
		req.TransactionID = NewTransactionID()
	}
	args := codec.InitializeEscrowArgs{Amount: req.Amount, TimeLock: req.TimeLock, TransactionID: req.TransactionID}
	ix, escrow, err := s.svc.Builder.InitializeEscrow(agent.PublicKey(), req.Api, args)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, req.TransactionID, agent, escrow, ix)
}

// MarkDisputed agent 发起争议，要求 agent 的 reputation 已初始化
func (s *EscrowService) MarkDisputed(ctx context.Context, transactionID string) (*Receipt, error) {
	agent, err := s.agent()
	if err != nil {
		return nil, err
	}
	ix, err := s.svc.Builder.MarkDisputed(agent.PublicKey(), transactionID)
	if err != nil {
		return nil, err
	}
	escrow, err := s.svc.Addresses.Escrow(transactionID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, transactionID, agent, escrow, ix)
}

// ReleaseFunds 读取 escrow 账户获得 api 地址后释放资金
func (s *EscrowService) ReleaseFunds(ctx context.Context, transactionID string) (*Receipt, error) {
	agent, err := s.agent()
	if err != nil {
		return nil, err
	}
	escrow, addr, err := s.GetEscrow(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	ix, err := s.svc.Builder.ReleaseFunds(agent.PublicKey(), escrow.Api, transactionID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, transactionID, agent, pda.DerivedAddress{Address: addr, Bump: escrow.Bump}, ix)
}

// InitReputation 由 agent 支付租金为 entity 创建 reputation 账户
func (s *EscrowService) InitReputation(ctx context.Context, entity types.Pubkey) (*Receipt, error) {
	agent, err := s.agent()
	if err != nil {
		return nil, err
	}
	ix, reputation, err := s.svc.Builder.InitReputation(entity, agent.PublicKey())
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, "", agent, reputation, ix)
}

// ResolveDispute 验证方签名 "{transaction_id}:{quality_score}"，
// 以 [ed25519 签名校验, resolve_dispute] 的固定顺序提交
func (s *EscrowService) ResolveDispute(ctx context.Context, transactionID string, qualityScore, refundPercentage uint8) (*Receipt, error) {
	agent, err := s.agent()
	if err != nil {
		return nil, err
	}
	if s.svc.Verifier == nil {
		return nil, ErrVerifierMissing
	}
	args := codec.ResolveDisputeArgs{QualityScore: qualityScore, RefundPercentage: refundPercentage}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	att, err := s.svc.Verifier.Attest(transactionID, qualityScore)
	if err != nil {
		return nil, err
	}
	verifyIx, err := att.Instruction()
	if err != nil {
		return nil, err
	}

	escrow, addr, err := s.GetEscrow(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	resolveIx, err := s.svc.Builder.ResolveDispute(escrow.Agent, escrow.Api, att.PublicKey, transactionID, att.ResolveArgs(refundPercentage))
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, transactionID, agent, pda.DerivedAddress{Address: addr, Bump: escrow.Bump}, verifyIx, resolveIx)
}

// ResolveDisputeSwitchboard 使用 Switchboard pull feed 作为质量分来源，只提交一条 escrow 指令。
// feed 结果超过 60 秒或与 qualityScore 不一致时链上拒绝
func (s *EscrowService) ResolveDisputeSwitchboard(ctx context.Context, transactionID string, feed types.Pubkey, qualityScore, refundPercentage uint8) (*Receipt, error) {
	agent, err := s.agent()
	if err != nil {
		return nil, err
	}
	args := codec.ResolveDisputeSwitchboardArgs{QualityScore: qualityScore, RefundPercentage: refundPercentage}
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if feed.IsZero() {
		return nil, errs.OutOfRange("switchboard_feed", "non-zero pubkey", feed.String())
	}
	escrow, addr, err := s.GetEscrow(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	ix, err := s.svc.Builder.ResolveDisputeSwitchboard(escrow.Agent, escrow.Api, feed, transactionID, args)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, transactionID, agent, pda.DerivedAddress{Address: addr, Bump: escrow.Bump}, ix)
}

// CheckRateLimit 以 agent 身份消耗一次限流额度，超限时链上返回 RateLimitExceeded
func (s *EscrowService) CheckRateLimit(ctx context.Context) (*Receipt, error) {
	agent, err := s.agent()
	if err != nil {
		return nil, err
	}
	ix, limiter, err := s.svc.Builder.CheckRateLimit(agent.PublicKey())
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, "", agent, limiter, ix)
}

// GetEscrow 返回 escrow 账户及其地址
func (s *EscrowService) GetEscrow(ctx context.Context, transactionID string) (*codec.EscrowAccount, types.Pubkey, error) {
	addr, err := s.svc.Addresses.Escrow(transactionID)
	if err != nil {
		return nil, types.Pubkey{}, err
	}
	data, err := s.accountData(ctx, addr.Address)
	if err != nil {
		return nil, addr.Address, err
	}
	acc, err := codec.DecodeEscrowAccount(data)
	if err != nil {
		return nil, addr.Address, fmt.Errorf("decode escrow %s: %w", addr.Address, err)
	}
	return acc, addr.Address, nil
}

func (s *EscrowService) GetReputation(ctx context.Context, entity types.Pubkey) (*codec.ReputationAccount, types.Pubkey, error) {
	addr, err := s.svc.Addresses.Reputation(entity)
	if err != nil {
		return nil, types.Pubkey{}, err
	}
	data, err := s.accountData(ctx, addr.Address)
	if err != nil {
		return nil, addr.Address, err
	}
	acc, err := codec.DecodeReputationAccount(data)
	if err != nil {
		return nil, addr.Address, fmt.Errorf("decode reputation %s: %w", addr.Address, err)
	}
	return acc, addr.Address, nil
}

func (s *EscrowService) GetRateLimit(ctx context.Context, entity types.Pubkey) (*codec.RateLimiterAccount, types.Pubkey, error) {
	addr, err := s.svc.Addresses.RateLimit(entity)
	if err != nil {
		return nil, types.Pubkey{}, err
	}
	data, err := s.accountData(ctx, addr.Address)
	if err != nil {
		return nil, addr.Address, err
	}
	acc, err := codec.DecodeRateLimiterAccount(data)
	if err != nil {
		return nil, addr.Address, fmt.Errorf("decode rate limiter %s: %w", addr.Address, err)
	}
	return acc, addr.Address, nil
}

// LastSubmission 查询某个 escrow 最近一次提交的签名及其链上状态。
// 提交超时后应先调用它确认结果，再决定是否重新提交。
func (s *EscrowService) LastSubmission(ctx context.Context, transactionID string) (string, journal.SubmissionStatus, *ledger.SignatureStatus, error) {
	sig, err := s.svc.Journal.LastSignature(ctx, transactionID)
	if err != nil || sig == "" {
		return "", journal.StatusUnknown, nil, err
	}
	recorded, err := s.svc.Journal.GetSubmission(ctx, sig)
	if err != nil {
		return sig, journal.StatusUnknown, nil, err
	}
	status, err := s.svc.Ledger.GetSignatureStatus(ctx, sig)
	if err != nil {
		return sig, recorded, nil, err
	}
	return sig, recorded, status, nil
}

func (s *EscrowService) accountData(ctx context.Context, address types.Pubkey) ([]byte, error) {
	info, err := s.svc.Ledger.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	if info.Owner != s.svc.Addresses.Program() {
		return nil, fmt.Errorf("%w: %s owner=%s", ErrWrongOwner, address, info.Owner)
	}
	return info.Data, nil
}

func (s *EscrowService) agent() (submitter.Signer, error) {
	if s.svc.Agent == nil {
		return nil, ErrAgentMissing
	}
	return s.svc.Agent, nil
}

// submit 提交并把结果写入提交日志；日志写入失败只告警
func (s *EscrowService) submit(ctx context.Context, transactionID string, signer submitter.Signer, address pda.DerivedAddress, ixs ...domain.Instruction) (*Receipt, error) {
	bundle := submitter.Bundle{Instructions: ixs, FeePayer: signer.PublicKey()}
	res, err := s.svc.Submitter.Submit(ctx, bundle, signer)

	sig, status := outcome(res, err)
	if sig != "" {
		if jerr := s.svc.Journal.MarkSubmission(ctx, sig, transactionID, status); jerr != nil {
			logger.Warnf("[EscrowService] 记录提交状态失败, signature=%s, err=%v", sig, jerr)
		}
	}
	if err != nil {
		var le *errs.LedgerError
		if errors.As(err, &le) {
			if reason := escrowix.DescribeFailure(le.Diagnostic); reason != "" {
				logger.Warnf("[EscrowService] %v 失败: %s", bundle.Names(), reason)
				return nil, fmt.Errorf("%s: %w", reason, err)
			}
		}
		return nil, err
	}
	return &Receipt{
		Result:        *res,
		TransactionID: transactionID,
		Address:       address,
		Events:        eventparser.ExtractEvents(s.svc.Addresses.Program(), res.SimulationLogs),
	}, nil
}

// outcome 根据提交结果决定写入日志的状态，没有签名时不写
func outcome(res *submitter.Result, err error) (string, journal.SubmissionStatus) {
	if err == nil {
		return res.Signature, journal.StatusConfirmed
	}
	var te *errs.TimeoutError
	if errors.As(err, &te) {
		return te.Signature, journal.StatusTimedOut
	}
	var le *errs.LedgerError
	if errors.As(err, &le) && le.Signature != "" {
		if errors.Is(err, errs.ErrSendFailed) {
			return le.Signature, journal.StatusPending
		}
		return le.Signature, journal.StatusFailed
	}
	return "", journal.StatusUnknown
}
