package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"escrow-client-sol/internal/pkg/errs"

	"github.com/near/borsh-go"
)

const (
	TagLength = 8

	// tag(8) | amount u64(8) | secondary i64(8) | text_len u32(4)
	applicationFixedLen = TagLength + 8 + 8 + 4
)

// ApplicationInstruction 通用应用层指令布局：
//
//	[0:8]    tag（Anchor 指令 discriminator）
//	[8:16]   amount u64 LE
//	[16:24]  secondary i64 LE
//	[24:28]  len(text) u32 LE
//	[28:]    text UTF-8
//
// 字段顺序固定，任何调整都必须更换 tag。
type ApplicationInstruction struct {
	Tag       [TagLength]byte
	Amount    uint64
	Secondary int64
	Text      string
}

// applicationArgs 为 tag 之后的 borsh 部分；字段顺序即线上顺序
type applicationArgs struct {
	Amount    uint64
	Secondary int64
	Text      string
}

// ApplicationLen 预先计算编码后的长度
func ApplicationLen(text string) int {
	return applicationFixedLen + len(text)
}

// EncodeApplication 编码应用层指令。长度上限由传输层决定，这里不做限制。
func EncodeApplication(tag [TagLength]byte, amount uint64, secondary int64, text string) ([]byte, error) {
	if uint64(len(text)) > math.MaxUint32 {
		return nil, errs.OutOfRange("text", "<= 4294967295 bytes", len(text))
	}
	body, err := borsh.Serialize(applicationArgs{Amount: amount, Secondary: secondary, Text: text})
	if err != nil {
		return nil, fmt.Errorf("borsh serialize application args: %w", err)
	}

	buf := make([]byte, 0, ApplicationLen(text))
	buf = append(buf, tag[:]...)
	buf = append(buf, body...)
	if len(buf) != ApplicationLen(text) {
		return nil, fmt.Errorf("application payload length mismatch: got %d, want %d", len(buf), ApplicationLen(text))
	}
	return buf, nil
}

// DecodeApplication 严格解码：长度必须与前缀声明完全一致
func DecodeApplication(data []byte) (ApplicationInstruction, error) {
	var ix ApplicationInstruction
	if len(data) < applicationFixedLen {
		return ix, errs.InvalidLength("application", applicationFixedLen, len(data))
	}
	textLen := binary.LittleEndian.Uint32(data[24:28])
	if want := uint64(applicationFixedLen) + uint64(textLen); uint64(len(data)) != want {
		return ix, errs.InvalidLength("application", int(want), len(data))
	}

	var args applicationArgs
	if err := borsh.Deserialize(&args, data[TagLength:]); err != nil {
		return ix, fmt.Errorf("borsh deserialize application args: %w", err)
	}
	copy(ix.Tag[:], data[:TagLength])
	ix.Amount = args.Amount
	ix.Secondary = args.Secondary
	ix.Text = args.Text
	return ix, nil
}

// ParseAmount 解析来自不可信输入（CLI / JSON）的 u64 数值，负数与溢出都返回 ValueOutOfRange
func ParseAmount(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.OutOfRange(field, "0..18446744073709551615", s)
	}
	return v, nil
}

// ParseSecondary 解析 i64；nonNegative 为 true 时拒绝负数（例如时间锁时长）
func ParseSecondary(field, s string, nonNegative bool) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.OutOfRange(field, "-9223372036854775808..9223372036854775807", s)
	}
	if nonNegative && v < 0 {
		return 0, errs.OutOfRange(field, ">= 0", s)
	}
	return v, nil
}

// SOLToLamports 将 SOL 数额换算为 lamports，拒绝负数、NaN 与溢出
func SOLToLamports(field string, sol float64, lamportsPerSOL uint64) (uint64, error) {
	if math.IsNaN(sol) || sol < 0 {
		return 0, errs.OutOfRange(field, ">= 0", sol)
	}
	lamports := math.Round(sol * float64(lamportsPerSOL))
	if lamports >= math.MaxUint64 {
		return 0, errs.OutOfRange(field, "<= 18446744073709551615 lamports", sol)
	}
	return uint64(lamports), nil
}
