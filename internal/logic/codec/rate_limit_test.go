package codec

import (
	"encoding/hex"
	"errors"
	"testing"

	"escrow-client-sol/internal/pkg/errs"
	"escrow-client-sol/internal/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitDiscriminators(t *testing.T) {
	assert.Equal(t, "31ddbef2d5995f3e", hex.EncodeToString(CheckRateLimitTag[:]))
	assert.Equal(t, "81120f9993d7c200", hex.EncodeToString(ResolveDisputeSwitchboardTag[:]))
	assert.Equal(t, "df88afdfd022d6ee", hex.EncodeToString(RateLimiterAccountTag[:]))
}

func TestResolveDisputeSwitchboardArgs(t *testing.T) {
	data, err := ResolveDisputeSwitchboardArgs{QualityScore: 65, RefundPercentage: 35}.Encode()
	require.NoError(t, err)
	assert.Equal(t, append(ResolveDisputeSwitchboardTag[:], 65, 35), data)

	_, err = ResolveDisputeSwitchboardArgs{QualityScore: 101}.Encode()
	assert.True(t, errors.Is(err, errs.ErrValueOutOfRange))
	_, err = ResolveDisputeSwitchboardArgs{RefundPercentage: 101}.Encode()
	assert.True(t, errors.Is(err, errs.ErrValueOutOfRange))
}

func TestDecodeRateLimiterAccount(t *testing.T) {
	in := &RateLimiterAccount{
		Entity:               types.Pubkey{5},
		VerificationLevel:    uint8(VerificationStaked),
		TransactionsLastHour: 3,
		TransactionsLastDay:  40,
		DisputesLastDay:      1,
		LastHourCheck:        480_000,
		LastDayCheck:         20_000,
		Bump:                 253,
	}
	data, err := EncodeRateLimiterAccount(in)
	require.NoError(t, err)
	assert.Len(t, data, TagLength+56)

	// 分配空间大于实际内容时尾部为 0
	out, err := DecodeRateLimiterAccount(append(data, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, VerificationStaked, out.Level())

	_, err = DecodeRateLimiterAccount(data[:20])
	assert.Error(t, err)

	wrong := append([]byte(nil), data...)
	copy(wrong, EscrowAccountTag[:])
	_, err = DecodeRateLimiterAccount(wrong)
	assert.Error(t, err)
}

func TestVerificationLevelLimits(t *testing.T) {
	assert.Equal(t, RateLimits{1, 10, 3}, VerificationBasic.Limits())
	assert.Equal(t, RateLimits{1000, 10000, 1000}, VerificationKYC.Limits())
	assert.Equal(t, VerificationBasic.Limits(), VerificationLevel(9).Limits())
	assert.Equal(t, "social", VerificationSocial.String())
	assert.Equal(t, "unknown(9)", VerificationLevel(9).String())
}

func TestRateLimiterRemaining(t *testing.T) {
	const now = int64(1_700_000_000)
	acc := &RateLimiterAccount{
		VerificationLevel:    uint8(VerificationStaked),
		TransactionsLastHour: 4,
		TransactionsLastDay:  100,
		LastHourCheck:        now / 3600,
		LastDayCheck:         now / 86400,
	}
	hourly, daily := acc.Remaining(now)
	assert.Equal(t, uint16(6), hourly)
	assert.Equal(t, uint16(0), daily)

	// 进入下一个小时与下一天后计数重置
	hourly, daily = acc.Remaining(now + 86400)
	assert.Equal(t, uint16(10), hourly)
	assert.Equal(t, uint16(100), daily)
}
