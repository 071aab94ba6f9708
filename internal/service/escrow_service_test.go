package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/logic/eventparser"
	"escrow-client-sol/internal/logic/journal"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"

	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apiWallet = types.Pubkey{0xAA}

func (fx *fixture) putEscrow(t *testing.T, txID string, status codec.EscrowStatus) types.Pubkey {
	t.Helper()
	addr, err := fx.ctx.Addresses.Escrow(txID)
	require.NoError(t, err)
	data, err := codec.EncodeEscrowAccount(&codec.EscrowAccount{
		Agent:         fx.agent.PublicKey(),
		Api:           apiWallet,
		Amount:        2_000_000,
		Status:        uint8(status),
		CreatedAt:     time.Now().Unix(),
		ExpiresAt:     time.Now().Add(time.Hour).Unix(),
		TransactionID: txID,
		Bump:          addr.Bump,
	})
	require.NoError(t, err)
	fx.ledger.setAccount(addr.Address, consts.DefaultEscrowProgram, data)
	return addr.Address
}

func TestCreateEscrow(t *testing.T) {
	fx := newFixture(t)
	receipt, err := fx.service.CreateEscrow(context.Background(), CreateEscrowRequest{
		Api: apiWallet, Amount: 2_000_000, TimeLock: 86400, TransactionID: "tx_100",
	})
	require.NoError(t, err)
	assert.Equal(t, "sig-1", receipt.Signature)
	assert.Equal(t, uint64(42), receipt.Slot)

	want, err := fx.ctx.Addresses.Escrow("tx_100")
	require.NoError(t, err)
	assert.Equal(t, want, receipt.Address)

	require.Len(t, fx.ledger.sent, 1)
	assert.Len(t, fx.ledger.sent[0].Message.Instructions, 1)
	assert.Equal(t, journal.StatusConfirmed, fx.journal.status["sig-1"])
	assert.Equal(t, "sig-1", fx.journal.last["tx_100"])
}

func TestCreateEscrowGeneratesTransactionID(t *testing.T) {
	fx := newFixture(t)
	receipt, err := fx.service.CreateEscrow(context.Background(), CreateEscrowRequest{
		Api: apiWallet, Amount: 2_000_000, TimeLock: 86400,
	})
	require.NoError(t, err)
	assert.Len(t, receipt.TransactionID, 16)

	want, err := fx.ctx.Addresses.Escrow(receipt.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, want, receipt.Address)
	assert.Equal(t, "sig-1", fx.journal.last[receipt.TransactionID])

	assert.NotEqual(t, NewTransactionID(), NewTransactionID())
}

func TestCreateEscrowValidatesBeforeIO(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.service.CreateEscrow(context.Background(), CreateEscrowRequest{
		Api: apiWallet, Amount: 2_000_000, TimeLock: 60, TransactionID: "tx_100",
	})
	assert.True(t, errors.Is(err, errs.ErrValueOutOfRange))
	assert.Empty(t, fx.ledger.sent)
}

func TestResolveDisputeOrdersSignatureVerificationFirst(t *testing.T) {
	fx := newFixture(t)
	fx.putEscrow(t, "tx_200", codec.EscrowDisputed)

	_, err := fx.service.ResolveDispute(context.Background(), "tx_200", 40, 60)
	require.NoError(t, err)
	require.Len(t, fx.ledger.sent, 1)

	msg := fx.ledger.sent[0].Message
	require.Len(t, msg.Instructions, 2)
	first := msg.Accounts[msg.Instructions[0].ProgramIDIndex]
	second := msg.Accounts[msg.Instructions[1].ProgramIDIndex]
	assert.Equal(t, consts.Ed25519Program.ToCommon(), first)
	assert.Equal(t, consts.DefaultEscrowProgram.ToCommon(), second)

	sv, err := codec.DecodeSignatureVerification(msg.Instructions[0].Data)
	require.NoError(t, err)
	assert.Equal(t, []byte("tx_200:40"), sv.Message)

	args, err := codec.DecodeResolveDispute(msg.Instructions[1].Data)
	require.NoError(t, err)
	assert.Equal(t, uint8(60), args.RefundPercentage)
	assert.Equal(t, sv.Signature, args.Signature[:])
}

func TestResolveDisputeReportsProjectedEvent(t *testing.T) {
	fx := newFixture(t)
	addr := fx.putEscrow(t, "tx_210", codec.EscrowDisputed)

	event := eventparser.DisputeResolved{Escrow: addr, TransactionID: "tx_210", QualityScore: 40, RefundPercentage: 60, RefundAmount: 1_200_000, PaymentAmount: 800_000}
	body, err := borsh.Serialize(event)
	require.NoError(t, err)
	program := consts.DefaultEscrowProgram.String()
	fx.ledger.simulation = &ledger.SimulationResult{Logs: []string{
		"Program " + program + " invoke [1]",
		"Program data: " + base64.StdEncoding.EncodeToString(append(eventparser.DisputeResolvedTag[:], body...)),
		"Program " + program + " success",
	}}

	receipt, err := fx.service.ResolveDispute(context.Background(), "tx_210", 40, 60)
	require.NoError(t, err)
	assert.Equal(t, addr, receipt.Address.Address)

	got, ok := eventparser.Find[eventparser.DisputeResolved](receipt.Events)
	require.True(t, ok)
	assert.Equal(t, uint64(1_200_000), got.RefundAmount)
}

func TestResolveDisputeRequiresVerifier(t *testing.T) {
	fx := newFixture(t)
	fx.ctx.Verifier = nil
	_, err := fx.service.ResolveDispute(context.Background(), "tx_200", 40, 60)
	assert.ErrorIs(t, err, ErrVerifierMissing)
}

func TestReleaseFundsReadsEscrow(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.service.ReleaseFunds(context.Background(), "tx_missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	fx.putEscrow(t, "tx_300", codec.EscrowActive)
	res, err := fx.service.ReleaseFunds(context.Background(), "tx_300")
	require.NoError(t, err)
	assert.Equal(t, "sig-1", res.Signature)
}

func TestOperationsRequireAgent(t *testing.T) {
	fx := newFixture(t)
	fx.ctx.Agent = nil
	_, err := fx.service.MarkDisputed(context.Background(), "tx_1")
	assert.ErrorIs(t, err, ErrAgentMissing)
	_, err = fx.service.InitReputation(context.Background(), apiWallet)
	assert.ErrorIs(t, err, ErrAgentMissing)
}

func TestGetEscrowChecksOwner(t *testing.T) {
	fx := newFixture(t)
	addr := fx.putEscrow(t, "tx_400", codec.EscrowActive)

	acc, got, err := fx.service.GetEscrow(context.Background(), "tx_400")
	require.NoError(t, err)
	assert.Equal(t, addr, got)
	assert.Equal(t, codec.EscrowActive, acc.EscrowStatus())
	assert.Equal(t, apiWallet, acc.Api)

	fx.ledger.accounts[addr].Owner = consts.SystemProgram
	_, _, err = fx.service.GetEscrow(context.Background(), "tx_400")
	assert.ErrorIs(t, err, ErrWrongOwner)
}

func TestGetReputation(t *testing.T) {
	fx := newFixture(t)
	addr, err := fx.ctx.Addresses.Reputation(apiWallet)
	require.NoError(t, err)
	data, err := codec.EncodeReputationAccount(&codec.ReputationAccount{Entity: apiWallet, EntityType: 1, ReputationScore: 500, Bump: addr.Bump})
	require.NoError(t, err)
	fx.ledger.setAccount(addr.Address, consts.DefaultEscrowProgram, data)

	rep, _, err := fx.service.GetReputation(context.Background(), apiWallet)
	require.NoError(t, err)
	assert.Equal(t, uint16(500), rep.ReputationScore)
}

func TestSubmitDescribesProgramError(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.status = &ledger.SignatureStatus{
		Slot:               1,
		ConfirmationStatus: ledger.CommitmentConfirmed,
		Err:                map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(6009)}}},
	}
	_, err := fx.service.MarkDisputed(context.Background(), "tx_500")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransactionFailed)
	assert.Contains(t, err.Error(), "DisputeWindowExpired")
	assert.Equal(t, journal.StatusFailed, fx.journal.status["sig-1"])
}

func TestSubmitConflictOnInvalidStatus(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.simulation = &ledger.SimulationResult{
		Err: map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(6000)}}},
	}
	_, err := fx.service.MarkDisputed(context.Background(), "tx_600")
	assert.ErrorIs(t, err, errs.ErrConflictingState)
	assert.Empty(t, fx.ledger.sent)
}

func TestResolveDisputeSignatureCheckFailureIsNotConflict(t *testing.T) {
	fx := newFixture(t)
	fx.putEscrow(t, "tx_610", codec.EscrowDisputed)
	// 第 0 条是 ed25519 预编译，Custom(0) 即 InvalidPublicKey
	fx.ledger.simulation = &ledger.SimulationResult{
		Err: map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(0)}}},
	}
	_, err := fx.service.ResolveDispute(context.Background(), "tx_610", 40, 60)
	assert.ErrorIs(t, err, errs.ErrSimulationFailed)
	assert.NotErrorIs(t, err, errs.ErrConflictingState)
	assert.Empty(t, fx.ledger.sent)
}

func TestResolveDisputeSwitchboard(t *testing.T) {
	fx := newFixture(t)
	fx.putEscrow(t, "tx_220", codec.EscrowDisputed)
	feed := types.Pubkey{0xFE}

	_, err := fx.service.ResolveDisputeSwitchboard(context.Background(), "tx_220", feed, 65, 35)
	require.NoError(t, err)
	require.Len(t, fx.ledger.sent, 1)

	msg := fx.ledger.sent[0].Message
	require.Len(t, msg.Instructions, 1, "不需要 ed25519 指令")
	assert.Equal(t, consts.DefaultEscrowProgram.ToCommon(), msg.Accounts[msg.Instructions[0].ProgramIDIndex])
	assert.Equal(t, append(codec.ResolveDisputeSwitchboardTag[:], 65, 35), msg.Instructions[0].Data)
	assert.Contains(t, msg.Accounts, feed.ToCommon())
}

func TestResolveDisputeSwitchboardValidatesBeforeIO(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.service.ResolveDisputeSwitchboard(context.Background(), "tx_220", types.Pubkey{}, 65, 35)
	assert.ErrorIs(t, err, errs.ErrValueOutOfRange)
	_, err = fx.service.ResolveDisputeSwitchboard(context.Background(), "tx_220", types.Pubkey{0xFE}, 65, 101)
	assert.ErrorIs(t, err, errs.ErrValueOutOfRange)
	assert.Empty(t, fx.ledger.sent)
}

func TestCheckRateLimitAndGetRateLimit(t *testing.T) {
	fx := newFixture(t)
	limiter, err := fx.ctx.Addresses.RateLimit(fx.agent.PublicKey())
	require.NoError(t, err)

	_, _, err = fx.service.GetRateLimit(context.Background(), fx.agent.PublicKey())
	assert.ErrorIs(t, err, ErrAccountNotFound)

	data, err := codec.EncodeRateLimiterAccount(&codec.RateLimiterAccount{
		Entity:               fx.agent.PublicKey(),
		VerificationLevel:    uint8(codec.VerificationSocial),
		TransactionsLastHour: 2,
		Bump:                 limiter.Bump,
	})
	require.NoError(t, err)
	fx.ledger.setAccount(limiter.Address, consts.DefaultEscrowProgram, data)

	acc, addr, err := fx.service.GetRateLimit(context.Background(), fx.agent.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, limiter.Address, addr)
	assert.Equal(t, codec.VerificationSocial, acc.Level())

	receipt, err := fx.service.CheckRateLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, limiter, receipt.Address)
	require.Len(t, fx.ledger.sent, 1)
	assert.Equal(t, codec.CheckRateLimitTag[:], fx.ledger.sent[0].Message.Instructions[0].Data)
}

func TestLastSubmission(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.service.CreateEscrow(context.Background(), CreateEscrowRequest{
		Api: apiWallet, Amount: 2_000_000, TimeLock: 86400, TransactionID: "tx_700",
	})
	require.NoError(t, err)

	sig, recorded, status, err := fx.service.LastSubmission(context.Background(), "tx_700")
	require.NoError(t, err)
	assert.Equal(t, "sig-1", sig)
	assert.Equal(t, journal.StatusConfirmed, recorded)
	require.NotNil(t, status)
	assert.Equal(t, ledger.CommitmentConfirmed, status.ConfirmationStatus)

	sig, _, _, err = fx.service.LastSubmission(context.Background(), "tx_none")
	require.NoError(t, err)
	assert.Empty(t, sig)
}

func TestOutcome(t *testing.T) {
	sig, st := outcome(nil, &errs.TimeoutError{Signature: "a"})
	assert.Equal(t, "a", sig)
	assert.Equal(t, journal.StatusTimedOut, st)

	sig, st = outcome(nil, &errs.LedgerError{Kind: errs.ErrSendFailed, Signature: "b"})
	assert.Equal(t, "b", sig)
	assert.Equal(t, journal.StatusPending, st)

	sig, _ = outcome(nil, &errs.LedgerError{Kind: errs.ErrSimulationFailed})
	assert.Empty(t, sig)
}
