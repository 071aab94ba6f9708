package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"escrow-client-sol/internal/config"
	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/logic/journal"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/logic/submitter"
	"escrow-client-sol/internal/oracle"
	"escrow-client-sol/internal/pkg/types"
	"escrow-client-sol/internal/svc"

	soltypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu         sync.Mutex
	accounts   map[types.Pubkey]*ledger.AccountInfo
	simulation *ledger.SimulationResult
	status     *ledger.SignatureStatus
	sent       []soltypes.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:   make(map[types.Pubkey]*ledger.AccountInfo),
		simulation: &ledger.SimulationResult{},
		status:     &ledger.SignatureStatus{Slot: 42, ConfirmationStatus: ledger.CommitmentConfirmed},
	}
}

func (f *fakeLedger) setAccount(addr types.Pubkey, owner types.Pubkey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = &ledger.AccountInfo{Lamports: 1, Owner: owner, Data: data}
}

func (f *fakeLedger) GetAccountInfo(_ context.Context, addr types.Pubkey) (*ledger.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[addr], nil
}

func (f *fakeLedger) GetLatestBlockhash(context.Context) (domain.FreshnessToken, error) {
	return domain.FreshnessToken{Blockhash: types.Hash{8}, LastValidBlockHeight: 100}, nil
}

func (f *fakeLedger) SimulateTransaction(context.Context, soltypes.Transaction) (*ledger.SimulationResult, error) {
	return f.simulation, nil
}

func (f *fakeLedger) SendTransaction(_ context.Context, tx soltypes.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return "sig-1", nil
}

func (f *fakeLedger) GetSignatureStatus(context.Context, string) (*ledger.SignatureStatus, error) {
	return f.status, nil
}

func (f *fakeLedger) GetBlockHeight(context.Context) (uint64, error) {
	return 0, nil
}

// memJournal 内存版提交日志
type memJournal struct {
	mu     sync.Mutex
	status map[string]journal.SubmissionStatus
	last   map[string]string
}

func newMemJournal() *memJournal {
	return &memJournal{status: map[string]journal.SubmissionStatus{}, last: map[string]string{}}
}

func (m *memJournal) MarkSubmission(_ context.Context, sig, txID string, st journal.SubmissionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[sig] = st
	if txID != "" {
		m.last[txID] = sig
	}
	return nil
}

func (m *memJournal) GetSubmission(_ context.Context, sig string) (journal.SubmissionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[sig], nil
}

func (m *memJournal) LastSignature(_ context.Context, txID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[txID], nil
}

func testConfig() config.ClientConfig {
	return config.ClientConfig{
		ProgramID: consts.DefaultEscrowProgramStr,
		Rpc:       config.RPCConfig{Commitment: ledger.CommitmentConfirmed},
		TimeConf:  config.TimeConfig{ConfirmTimeoutMs: 1000, PollIntervalMs: 1},
	}
}

func keypair(t *testing.T, seed byte) *submitter.KeypairSigner {
	t.Helper()
	s, err := submitter.NewKeypairSigner(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize)))
	require.NoError(t, err)
	return s
}

type fixture struct {
	ledger  *fakeLedger
	journal *memJournal
	ctx     *svc.ServiceContext
	service *EscrowService
	agent   *submitter.KeypairSigner
}

func newFixture(t *testing.T) *fixture {
	fl := newFakeLedger()
	mj := newMemJournal()
	ctx := svc.New(testConfig(), fl)
	ctx.Journal = mj
	agent := keypair(t, 1)
	ctx.Agent = agent
	ctx.Verifier = oracle.NewAttestor(keypair(t, 2))
	return &fixture{ledger: fl, journal: mj, ctx: ctx, service: NewEscrowService(ctx), agent: agent}
}
