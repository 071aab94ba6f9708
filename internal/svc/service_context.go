package svc

import (
	"fmt"

	"escrow-client-sol/internal/config"
	"escrow-client-sol/internal/logic/escrowix"
	"escrow-client-sol/internal/logic/journal"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/logic/pda"
	"escrow-client-sol/internal/logic/submitter"
	"escrow-client-sol/internal/oracle"
	"escrow-client-sol/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ServiceContext 显式持有所有依赖，不使用全局单例
type ServiceContext struct {
	Config    config.ClientConfig
	Ledger    ledger.Client
	Addresses *pda.EscrowAddresses
	Builder   *escrowix.Builder
	Submitter *submitter.Submitter
	Journal   journal.Journal
	Agent     submitter.Signer // 未配置密钥时为 nil，只能执行查询
	Verifier  *oracle.Attestor // 未配置验证方密钥时为 nil

	rdb *redis.Client
}

// NewServiceContext 创建 RPC 客户端、加载密钥并组装各组件
func NewServiceContext(c config.ClientConfig) (*ServiceContext, error) {
	// 1. RPC
	rpcClient, err := ledger.NewRPCClient(c.Rpc.Endpoint, c.Rpc.RequestTimeout())
	if err != nil {
		logger.Errorf("[ServiceContext] RPC 客户端初始化失败: %v", err)
		return nil, err
	}

	ctx := New(c, rpcClient)

	// 2. 密钥
	if ctx.Agent, err = loadAgent(c.Keys); err != nil {
		return nil, err
	}
	if c.Keys.VerifierKeypairPath != "" {
		verifier, err := submitter.LoadKeypairFile(c.Keys.VerifierKeypairPath)
		if err != nil {
			return nil, fmt.Errorf("load verifier keypair: %w", err)
		}
		ctx.Verifier = oracle.NewAttestor(verifier)
	}

	// 3. Redis 提交日志（可选）
	if c.RedisAddr != "" {
		ctx.rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		ctx.Journal = journal.NewRedisJournal(ctx.rdb)
	}

	logger.Infof("[ServiceContext] 初始化完成, rpc=%s, program=%s, agent=%v, verifier=%v, journal=%v",
		c.Rpc.Endpoint, c.ProgramID, ctx.Agent != nil, ctx.Verifier != nil, ctx.rdb != nil)
	return ctx, nil
}

// New 使用给定的 ledger 组装无密钥的上下文，测试中注入 fake ledger
func New(c config.ClientConfig, client ledger.Client) *ServiceContext {
	addresses := pda.NewEscrowAddresses(pda.NewDeriver(nil), c.Program())
	builder := escrowix.NewBuilder(addresses)
	opts := c.ToSubmitOptions()
	opts.IsConflict = builder.IsConflict

	return &ServiceContext{
		Config:    c,
		Ledger:    client,
		Addresses: addresses,
		Builder:   builder,
		Submitter: submitter.New(client, opts),
		Journal:   journal.Nop{},
	}
}

func loadAgent(keys config.KeysConfig) (submitter.Signer, error) {
	switch {
	case keys.AgentPrivateKey != "":
		s, err := submitter.KeypairFromBase58(keys.AgentPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("load agent private key: %w", err)
		}
		return s, nil
	case keys.AgentKeypairPath != "":
		s, err := submitter.LoadKeypairFile(keys.AgentKeypairPath)
		if err != nil {
			return nil, fmt.Errorf("load agent keypair: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.rdb != nil {
		if err := ctx.rdb.Close(); err != nil {
			logger.Warnf("[ServiceContext] 关闭 Redis 失败: %v", err)
		}
	}
}
