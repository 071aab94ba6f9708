package consts

const (
	// MaxTransactionSize 为 Solana 单笔交易序列化后的最大字节数（IPv6 MTU 1280 - 48 头部）
	MaxTransactionSize = 1232

	// PDA 推导限制，与 solana_program::pubkey::{MAX_SEED_LEN, MAX_SEEDS} 一致
	MaxSeedLength = 32
	MaxSeeds      = 16

	LamportsPerSOL uint64 = 1_000_000_000
)

// escrow 程序的校验常量，客户端在编码前先行校验，避免把必然失败的交易发上链
const (
	MinTimeLock      int64  = 3600      // 1 小时
	MaxTimeLock      int64  = 2_592_000 // 30 天
	MinEscrowAmount  uint64 = 1_000_000 // 0.001 SOL
	MaxEscrowAmount  uint64 = 1_000_000_000_000
	MaxTransactionID        = 64
	MaxQualityScore  uint8  = 100
	MaxRefundPercent uint8  = 100
)

// PDA seed 前缀
const (
	EscrowSeed     = "escrow"
	ReputationSeed = "reputation"
	RateLimitSeed  = "rate_limit"
)
