package submitter

import (
	"context"
	"errors"
	"sync"

	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/pkg/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
)

// fakeLedger 记录调用顺序，按脚本返回结果
type fakeLedger struct {
	mu    sync.Mutex
	calls []string

	freshness   domain.FreshnessToken
	simulation  *ledger.SimulationResult
	sendErr     error
	sendSig     string
	statuses    []*ledger.SignatureStatus // 依次返回，耗尽后重复最后一个
	blockHeight uint64

	sent []soltypes.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		freshness: domain.FreshnessToken{
			Blockhash:            types.Hash{1, 2, 3},
			LastValidBlockHeight: 1000,
		},
		simulation: &ledger.SimulationResult{Logs: []string{"Program log: ok"}},
		sendSig:    "fake-signature",
	}
}

func (f *fakeLedger) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeLedger) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeLedger) GetAccountInfo(context.Context, types.Pubkey) (*ledger.AccountInfo, error) {
	f.record("GetAccountInfo")
	return nil, nil
}

func (f *fakeLedger) GetLatestBlockhash(context.Context) (domain.FreshnessToken, error) {
	f.record("GetLatestBlockhash")
	return f.freshness, nil
}

func (f *fakeLedger) SimulateTransaction(_ context.Context, _ soltypes.Transaction) (*ledger.SimulationResult, error) {
	f.record("SimulateTransaction")
	return f.simulation, nil
}

func (f *fakeLedger) SendTransaction(_ context.Context, tx soltypes.Transaction) (string, error) {
	f.record("SendTransaction")
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sendSig, nil
}

func (f *fakeLedger) GetSignatureStatus(_ context.Context, _ string) (*ledger.SignatureStatus, error) {
	f.record("GetSignatureStatus")
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil, nil
	}
	st := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return st, nil
}

func (f *fakeLedger) GetBlockHeight(context.Context) (uint64, error) {
	f.record("GetBlockHeight")
	if f.blockHeight == 0 {
		return 0, errors.New("block height unavailable")
	}
	return f.blockHeight, nil
}

// walletSigner 模拟自行发送交易的钱包
type walletSigner struct {
	*KeypairSigner
	sent int
}

func (w *walletSigner) SignAndSendTransaction(ctx context.Context, tx soltypes.Transaction) (string, error) {
	signed, err := w.SignTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	w.sent++
	return transactionSignature(signed), nil
}

// pubkeyOnly 没有任何签名能力
type pubkeyOnly struct{ key types.Pubkey }

func (p pubkeyOnly) PublicKey() types.Pubkey { return p.key }
