package ledger

import (
	"encoding/json"
	"strings"
)

// InstructionError 解析 RPC 返回的 {"InstructionError":[index, {"Custom": code}]} 结构
type InstructionError struct {
	Index  int
	Custom *uint32
	Name   string // 非 Custom 错误时的名称，例如 "InvalidAccountData"
}

// ParseInstructionError diagnostic 为 RPC 原样返回的 err 字段（JSON 解码后的 any）
func ParseInstructionError(diagnostic any) (InstructionError, bool) {
	var out InstructionError
	m, ok := diagnostic.(map[string]any)
	if !ok {
		return out, false
	}
	pair, ok := m["InstructionError"].([]any)
	if !ok || len(pair) != 2 {
		return out, false
	}
	idx, ok := toInt(pair[0])
	if !ok {
		return out, false
	}
	out.Index = idx

	switch v := pair[1].(type) {
	case string:
		out.Name = v
	case map[string]any:
		if code, ok := toInt(v["Custom"]); ok && code >= 0 {
			c := uint32(code)
			out.Custom = &c
			out.Name = "Custom"
		} else {
			for k := range v {
				out.Name = k
			}
		}
	default:
		return out, false
	}
	return out, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// LogsContain 在程序日志中查找子串（忽略大小写）
func LogsContain(logs []string, needle string) bool {
	needle = strings.ToLower(needle)
	for _, l := range logs {
		if strings.Contains(strings.ToLower(l), needle) {
			return true
		}
	}
	return false
}

// IsAccountInUse 账户已被初始化（例如两个调用方并发初始化同一个 PDA）
func IsAccountInUse(diagnostic any, logs []string) bool {
	if LogsContain(logs, "already in use") {
		return true
	}
	if s, ok := diagnostic.(string); ok && strings.Contains(s, "AccountInUse") {
		return true
	}
	return false
}
