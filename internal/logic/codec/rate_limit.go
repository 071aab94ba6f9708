package codec

import (
	"fmt"

	"escrow-client-sol/internal/pkg/types"

	"github.com/near/borsh-go"
)

const (
	secondsPerHour = 3600
	secondsPerDay  = 86400
)

// VerificationLevel 与链上 enum VerificationLevel 的变体顺序一致
type VerificationLevel uint8

const (
	VerificationBasic VerificationLevel = iota
	VerificationStaked
	VerificationSocial
	VerificationKYC
)

func (v VerificationLevel) String() string {
	switch v {
	case VerificationBasic:
		return "basic"
	case VerificationStaked:
		return "staked"
	case VerificationSocial:
		return "social"
	case VerificationKYC:
		return "kyc"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// RateLimits 每小时交易数、每天交易数、每天争议数
type RateLimits struct {
	HourlyTransactions uint16
	DailyTransactions  uint16
	DailyDisputes      uint16
}

// Limits 与程序中 get_rate_limits 保持一致，未知等级按 Basic 处理
func (v VerificationLevel) Limits() RateLimits {
	switch v {
	case VerificationStaked:
		return RateLimits{10, 100, 10}
	case VerificationSocial:
		return RateLimits{50, 500, 50}
	case VerificationKYC:
		return RateLimits{1000, 10000, 1000}
	default:
		return RateLimits{1, 10, 3}
	}
}

// RateLimiterAccount 链上 RateLimiter 账户，last_*_check 为 unix 时间除以小时/天的序号
type RateLimiterAccount struct {
	Entity               types.Pubkey
	VerificationLevel    uint8
	TransactionsLastHour uint16
	TransactionsLastDay  uint16
	DisputesLastDay      uint16
	LastHourCheck        int64
	LastDayCheck         int64
	Bump                 uint8
}

func (r *RateLimiterAccount) Level() VerificationLevel {
	return VerificationLevel(r.VerificationLevel)
}

// Remaining 按 check_rate_limit 的窗口重置规则计算 now 时刻还能通过的次数
func (r *RateLimiterAccount) Remaining(now int64) (hourly, daily uint16) {
	limits := r.Level().Limits()
	usedHour, usedDay := r.TransactionsLastHour, r.TransactionsLastDay
	if now/secondsPerHour > r.LastHourCheck {
		usedHour = 0
	}
	if now/secondsPerDay > r.LastDayCheck {
		usedDay = 0
	}
	return saturatingSub(limits.HourlyTransactions, usedHour), saturatingSub(limits.DailyTransactions, usedDay)
}

func saturatingSub(a, b uint16) uint16 {
	if b >= a {
		return 0
	}
	return a - b
}

func DecodeRateLimiterAccount(data []byte) (*RateLimiterAccount, error) {
	var acc RateLimiterAccount
	if err := decodeAccount(data, RateLimiterAccountTag, "rate_limiter_account", rateLimiterBodyLen, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// rateLimiterBodyLen 定长：32+1+2*3+8+8+1
func rateLimiterBodyLen(body []byte) (int, bool) {
	const n = 32 + 1 + 2*3 + 8 + 8 + 1
	return n, len(body) >= n
}

// EncodeRateLimiterAccount 仅测试与本地模拟使用
func EncodeRateLimiterAccount(acc *RateLimiterAccount) ([]byte, error) {
	body, err := borsh.Serialize(*acc)
	if err != nil {
		return nil, err
	}
	return withTag(RateLimiterAccountTag, body), nil
}
