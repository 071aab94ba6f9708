package eventparser

import (
	"encoding/base64"
	"fmt"
	"runtime/debug"
	"strings"

	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/pkg/types"
	"escrow-client-sol/pkg/logger"

	"github.com/near/borsh-go"
)

const (
	programDataPrefix = "Program data: "
	programPrefix     = "Program "
)

// eventHandler 返回事件结构体指针
type eventHandler func(body []byte) (any, error)

// handlers 是 事件 discriminator → 解析 handler 的路由表
var handlers = map[codec.Discriminator]struct {
	name   string
	decode eventHandler
}{
	EscrowInitializedTag: {"EscrowInitialized", decodeInto[EscrowInitialized]},
	DisputeMarkedTag:     {"DisputeMarked", decodeInto[DisputeMarked]},
	DisputeResolvedTag:   {"DisputeResolved", decodeInto[DisputeResolved]},
	FundsReleasedTag:     {"FundsReleased", decodeInto[FundsReleased]},
}

func decodeInto[T any](body []byte) (any, error) {
	event := new(T)
	if err := borsh.Deserialize(event, body); err != nil {
		return nil, err
	}
	return event, nil
}

// ExtractEvents 从交易日志中提取 program 直接输出的事件。
// 通过 invoke / success / failed 日志维护调用栈，只接受栈顶为 program 时的 "Program data:" 行。
func ExtractEvents(program types.Pubkey, logs []string) (result []Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[eventparser::ExtractEvents] panic: %+v\nstack: %s", r, debug.Stack())
			result = nil
		}
	}()

	target := program.String()
	var stack []string
	for _, line := range logs {
		switch {
		case strings.HasPrefix(line, programDataPrefix):
			if len(stack) == 0 || stack[len(stack)-1] != target {
				continue
			}
			ev, err := decodeLine(strings.TrimPrefix(line, programDataPrefix))
			if err != nil {
				logger.Warnf("[eventparser] 事件解析失败: %v", err)
				continue
			}
			if ev != nil {
				result = append(result, *ev)
			}

		case strings.HasPrefix(line, programPrefix):
			fields := strings.Fields(line)
			if len(fields) < 3 {
				continue
			}
			switch {
			case fields[2] == "invoke":
				stack = append(stack, fields[1])
			case fields[2] == "success" || strings.HasPrefix(fields[2], "failed"):
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
	}
	return result
}

// decodeLine 未注册的事件返回 (nil, nil)
func decodeLine(encoded string) (*Event, error) {
	// sol_log_data 可以一次写入多段，以空格分隔；emit! 只写一段
	first, _, _ := strings.Cut(strings.TrimSpace(encoded), " ")
	raw, err := base64.StdEncoding.DecodeString(first)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	if len(raw) < codec.TagLength {
		return nil, nil
	}
	h, ok := handlers[codec.Discriminator(raw[:codec.TagLength])]
	if !ok {
		return nil, nil
	}
	data, err := h.decode(raw[codec.TagLength:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h.name, err)
	}
	return &Event{Name: h.name, Data: data}, nil
}

// Find 返回第一个 T 类型的事件
func Find[T any](events []Event) (*T, bool) {
	for _, ev := range events {
		if v, ok := ev.Data.(*T); ok {
			return v, true
		}
	}
	return nil, false
}
