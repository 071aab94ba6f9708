package config

import (
	"fmt"
	"os"
	"time"

	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/logic/ledger"
	"escrow-client-sol/internal/logic/submitter"
	"escrow-client-sol/internal/pkg/types"
	"escrow-client-sol/pkg/logger"

	"github.com/zeromicro/go-zero/core/conf"
	"gopkg.in/yaml.v3"
)

// 环境变量覆盖配置文件
const (
	EnvRPCURL          = "SOLANA_RPC_URL"
	EnvProgramID       = "X402_PROGRAM_ID"
	EnvAgentPrivateKey = "AGENT_PRIVATE_KEY"
	EnvAgentWalletPath = "AGENT_WALLET_PATH"
)

const (
	defaultRPCEndpoint      = "https://api.devnet.solana.com"
	defaultRequestTimeoutMs = 10_000
	defaultConfirmTimeoutMs = 60_000
	defaultPollIntervalMs   = 500
)

type LogConfig struct {
	Format   string `json:"format,optional" yaml:"format"`     // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional" yaml:"log_dir"`   // 日志目录，为空时只输出到 stderr
	Level    string `json:"level,optional" yaml:"level"`       // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional" yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

type RPCConfig struct {
	Endpoint         string `json:"endpoint,optional" yaml:"endpoint"`                     // Solana JSON-RPC 地址
	RequestTimeoutMs int    `json:"request_timeout_ms,optional" yaml:"request_timeout_ms"` // 单次 RPC 请求超时（毫秒）
	Commitment       string `json:"commitment,optional" yaml:"commitment"`                 // 目标确认级别：processed / confirmed / finalized
}

func (c *RPCConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// TimeConfig 提交相关的超时配置（单位：毫秒）
type TimeConfig struct {
	ConfirmTimeoutMs int `json:"confirm_timeout_ms,optional" yaml:"confirm_timeout_ms"` // 发送后等待确认的最长时间
	PollIntervalMs   int `json:"poll_interval_ms,optional" yaml:"poll_interval_ms"`     // 查询交易状态的间隔
}

// KeysConfig 密钥来源，均为本地文件路径
type KeysConfig struct {
	AgentKeypairPath    string `json:"agent_keypair_path,optional" yaml:"agent_keypair_path"`       // agent（付款方）密钥文件
	AgentPrivateKey     string `json:"-,optional" yaml:"-"`                                         // base58 私钥，只能通过环境变量设置
	VerifierKeypairPath string `json:"verifier_keypair_path,optional" yaml:"verifier_keypair_path"` // 验证方密钥文件，仅 resolve 时需要
}

// ClientConfig 主配置
type ClientConfig struct {
	LogConf   LogConfig  `json:"logger,optional" yaml:"logger"`         // 日志配置
	Rpc       RPCConfig  `json:"rpc,optional" yaml:"rpc"`               // RPC 配置
	ProgramID string     `json:"program_id,optional" yaml:"program_id"` // escrow 程序地址
	TimeConf  TimeConfig `json:"time_conf,optional" yaml:"time_conf"`   // 时间相关配置
	RedisAddr string     `json:"redis_addr,optional" yaml:"redis_addr"` // Redis 地址，为空时不记录提交日志
	Keys      KeysConfig `json:"keys,optional" yaml:"keys"`             // 密钥配置
}

// Load path 为空时只使用默认值和环境变量。
// 配置文件内容中的 ${VAR} 会先按环境变量展开，之后再应用固定的环境变量覆盖
func Load(path string) (ClientConfig, error) {
	var c ClientConfig
	if path != "" {
		if err := conf.Load(path, &c, conf.UseEnv()); err != nil {
			return c, fmt.Errorf("load config %s failed: %w", path, err)
		}
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.check(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *ClientConfig) applyEnv() {
	if v := os.Getenv(EnvRPCURL); v != "" {
		c.Rpc.Endpoint = v
	}
	if v := os.Getenv(EnvProgramID); v != "" {
		c.ProgramID = v
	}
	if v := os.Getenv(EnvAgentWalletPath); v != "" {
		c.Keys.AgentKeypairPath = v
	}
	if v := os.Getenv(EnvAgentPrivateKey); v != "" {
		c.Keys.AgentPrivateKey = v
	}
}

func (c *ClientConfig) applyDefaults() {
	if c.Rpc.Endpoint == "" {
		c.Rpc.Endpoint = defaultRPCEndpoint
	}
	if c.Rpc.RequestTimeoutMs <= 0 {
		c.Rpc.RequestTimeoutMs = defaultRequestTimeoutMs
	}
	if c.Rpc.Commitment == "" {
		c.Rpc.Commitment = ledger.CommitmentConfirmed
	}
	if c.ProgramID == "" {
		c.ProgramID = consts.DefaultEscrowProgramStr
	}
	if c.TimeConf.ConfirmTimeoutMs <= 0 {
		c.TimeConf.ConfirmTimeoutMs = defaultConfirmTimeoutMs
	}
	if c.TimeConf.PollIntervalMs <= 0 {
		c.TimeConf.PollIntervalMs = defaultPollIntervalMs
	}
}

// check 在默认值与环境变量生效之后执行。
// 不实现 Validate()，否则 conf.Load 会在应用默认值之前校验
func (c *ClientConfig) check() error {
	if ledger.CommitmentRank(c.Rpc.Commitment) < 0 {
		return fmt.Errorf("invalid rpc.commitment %q", c.Rpc.Commitment)
	}
	if _, err := types.TryPubkeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id %q: %w", c.ProgramID, err)
	}
	return nil
}

// Program 校验通过后调用
func (c *ClientConfig) Program() types.Pubkey {
	return types.PubkeyFromBase58(c.ProgramID)
}

// Dump 输出生效后的配置，私钥不会被输出
func (c *ClientConfig) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *ClientConfig) ToSubmitOptions() submitter.Options {
	return submitter.Options{
		ConfirmTimeout: time.Duration(c.TimeConf.ConfirmTimeoutMs) * time.Millisecond,
		PollInterval:   time.Duration(c.TimeConf.PollIntervalMs) * time.Millisecond,
		Commitment:     c.Rpc.Commitment,
		MaxTxSize:      consts.MaxTransactionSize,
	}
}
