package codec

import "crypto/sha256"

// Discriminator 为 Anchor 指令/账户前 8 字节标识
type Discriminator [TagLength]byte

// InstructionDiscriminator = sha256("global:<name>")[:8]
func InstructionDiscriminator(name string) Discriminator {
	return hashPrefix("global:" + name)
}

// AccountDiscriminator = sha256("account:<Name>")[:8]
func AccountDiscriminator(name string) Discriminator {
	return hashPrefix("account:" + name)
}

// EventDiscriminator = sha256("event:<Name>")[:8]，用于 emit! 写入日志的事件
func EventDiscriminator(name string) Discriminator {
	return hashPrefix("event:" + name)
}

func hashPrefix(preimage string) Discriminator {
	sum := sha256.Sum256([]byte(preimage))
	var d Discriminator
	copy(d[:], sum[:TagLength])
	return d
}

// escrow 程序的指令与账户标识
var (
	InitializeEscrowTag = InstructionDiscriminator("initialize_escrow")
	ReleaseFundsTag     = InstructionDiscriminator("release_funds")
	ResolveDisputeTag   = InstructionDiscriminator("resolve_dispute")
	MarkDisputedTag     = InstructionDiscriminator("mark_disputed")
	InitReputationTag   = InstructionDiscriminator("init_reputation")
	CheckRateLimitTag   = InstructionDiscriminator("check_rate_limit")

	ResolveDisputeSwitchboardTag = InstructionDiscriminator("resolve_dispute_switchboard")

	EscrowAccountTag      = AccountDiscriminator("Escrow")
	ReputationAccountTag  = AccountDiscriminator("EntityReputation")
	RateLimiterAccountTag = AccountDiscriminator("RateLimiter")
)
