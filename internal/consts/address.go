package consts

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr  = "11111111111111111111111111111111"
	Ed25519ProgramStr = "Ed25519SigVerify111111111111111111111111111"

	// Sysvars
	SysvarInstructionsStr = "Sysvar1nstructions1111111111111111111111111"

	// x402 escrow 程序（devnet 部署），可被配置 program_id 覆盖
	DefaultEscrowProgramStr = "824XkRJ2TDQkqtWwU6YC4BKNq6bRGEikR48sdvHWAk5A"
)
