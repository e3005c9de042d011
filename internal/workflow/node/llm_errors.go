package node

import "strings"

// IsResponseFormatUnsupportedError 判断上游是否拒绝了结构化输出参数，
// 命中时调用方降级为仅靠提示词约束 JSON。
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"),
		strings.Contains(msg, "json_schema"),
		strings.Contains(msg, "response_schema"),
		strings.Contains(msg, "response_mime_type"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	default:
		return false
	}
}
