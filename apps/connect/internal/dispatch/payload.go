package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPayload 事件缺少必需的参数
var ErrEmptyPayload = errors.New("payload is required")

// StringArg 解析单字符串参数，兼容两种写法：
//
//	"data": "u2"
//	"data": {"byUserId": "u2"}
func StringArg(payload json.RawMessage, field string) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", ErrEmptyPayload
	}

	var value string
	switch trimmed[0] {
	case '"':
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return "", fmt.Errorf("decode payload: %w", err)
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", fmt.Errorf("decode payload: %w", err)
		}
		raw, ok := obj[field]
		if !ok {
			return "", fmt.Errorf("%w: missing %s", ErrEmptyPayload, field)
		}
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", fmt.Errorf("decode %s: %w", field, err)
		}
	default:
		return "", fmt.Errorf("unsupported payload: %s", string(trimmed))
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmptyPayload
	}
	return value, nil
}
