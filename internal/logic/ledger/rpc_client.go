package ledger

import (
	"context"
	"fmt"
	"time"

	"escrow-client-sol/internal/logic/domain"
	"escrow-client-sol/internal/pkg/types"
	"escrow-client-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	soltypes "github.com/blocto/solana-go-sdk/types"
)

const defaultRequestTimeout = 10 * time.Second

// RPCClient 基于 blocto solana-go-sdk 的 Client 实现
type RPCClient struct {
	client   *client.Client
	endpoint string
	timeout  time.Duration
}

// NewRPCClient timeout 为单次 RPC 请求的超时，<=0 时使用默认值
func NewRPCClient(endpoint string, timeout time.Duration) (*RPCClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is empty")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c := client.NewClient(endpoint)
	if c == nil {
		return nil, fmt.Errorf("rpc client init failed: %s", endpoint)
	}
	return &RPCClient{client: c, endpoint: endpoint, timeout: timeout}, nil
}

func (r *RPCClient) Endpoint() string {
	return r.endpoint
}

func (r *RPCClient) GetAccountInfo(ctx context.Context, address types.Pubkey) (*AccountInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	info, err := r.client.GetAccountInfo(ctx, address.String())
	if err != nil {
		return nil, fmt.Errorf("GetAccountInfo %s failed: %w", address, err)
	}
	owner := types.PubkeyFromCommon(info.Owner)
	if owner.IsZero() && info.Lamports == 0 && len(info.Data) == 0 {
		return nil, nil
	}
	return &AccountInfo{
		Lamports:   info.Lamports,
		Owner:      owner,
		Executable: info.Executable,
		Data:       info.Data,
	}, nil
}

func (r *RPCClient) GetLatestBlockhash(ctx context.Context) (domain.FreshnessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.client.GetLatestBlockhash(ctx)
	if err != nil {
		return domain.FreshnessToken{}, fmt.Errorf("GetLatestBlockhash failed: %w", err)
	}
	hash, err := types.HashFromBase58(res.Blockhash)
	if err != nil {
		return domain.FreshnessToken{}, fmt.Errorf("GetLatestBlockhash returned bad hash: %w", err)
	}
	return domain.FreshnessToken{Blockhash: hash, LastValidBlockHeight: res.LatestValidBlockHeight}, nil
}

func (r *RPCClient) SimulateTransaction(ctx context.Context, tx soltypes.Transaction) (*SimulationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	res, err := r.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("SimulateTransaction failed: %w", err)
	}
	logger.Debugf("[RPCClient] SimulateTransaction 完成, logs=%d, 耗时=%v", len(res.Logs), time.Since(start))
	return &SimulationResult{Err: res.Err, Logs: res.Logs}, nil
}

func (r *RPCClient) SendTransaction(ctx context.Context, tx soltypes.Transaction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sig, err := r.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("SendTransaction failed: %w", err)
	}
	return sig, nil
}

func (r *RPCClient) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	st, err := r.client.GetSignatureStatus(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("GetSignatureStatus %s failed: %w", signature, err)
	}
	if st == nil {
		return nil, nil
	}
	status := &SignatureStatus{
		Slot:          st.Slot,
		Confirmations: st.Confirmations,
		Err:           st.Err,
	}
	if st.ConfirmationStatus != nil {
		status.ConfirmationStatus = string(*st.ConfirmationStatus)
	}
	return status, nil
}

func (r *RPCClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// client.Client 未封装 getBlockHeight，直接走底层 RpcClient
	res, err := r.client.RpcClient.GetBlockHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("GetBlockHeight failed: %w", err)
	}
	if res.Error != nil {
		return 0, fmt.Errorf("GetBlockHeight rpc error: %v", res.Error)
	}
	return res.Result, nil
}
