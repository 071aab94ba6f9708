package codec

import "fmt"

// Anchor 自定义错误码从 6000 开始，按枚举声明顺序递增
const programErrorBase = 6000

const (
	ErrCodeInvalidStatus uint32 = programErrorBase + iota
	ErrCodeUnauthorized
	ErrCodeInvalidQualityScore
	ErrCodeInvalidRefundPercentage
	ErrCodeInvalidSignature
	ErrCodeInvalidTimeLock
	ErrCodeInvalidAmount
	ErrCodeInvalidTransactionID
	ErrCodeTimeLockNotExpired
	ErrCodeDisputeWindowExpired
	ErrCodeAmountTooLarge
	ErrCodeInsufficientDisputeFunds
	ErrCodeRateLimitExceeded
	ErrCodeProviderSuspended
	ErrCodeReputationTooLow
	ErrCodeArithmeticOverflow
	ErrCodeInsufficientRentReserve
	ErrCodeInvalidSwitchboardAttestation
	ErrCodeStaleAttestation
	ErrCodeQualityScoreMismatch
)

var programErrorNames = []string{
	"InvalidStatus",
	"Unauthorized",
	"InvalidQualityScore",
	"InvalidRefundPercentage",
	"InvalidSignature",
	"InvalidTimeLock",
	"InvalidAmount",
	"InvalidTransactionId",
	"TimeLockNotExpired",
	"DisputeWindowExpired",
	"AmountTooLarge",
	"InsufficientDisputeFunds",
	"RateLimitExceeded",
	"ProviderSuspended",
	"ReputationTooLow",
	"ArithmeticOverflow",
	"InsufficientRentReserve",
	"InvalidSwitchboardAttestation",
	"StaleAttestation",
	"QualityScoreMismatch",
}

// ProgramErrorName 返回 escrow 程序自定义错误码对应的名称
func ProgramErrorName(code uint32) string {
	if code >= programErrorBase && int(code-programErrorBase) < len(programErrorNames) {
		return programErrorNames[code-programErrorBase]
	}
	return fmt.Sprintf("Custom(%d)", code)
}
