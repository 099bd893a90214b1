package utils

import (
	"fmt"
	"strings"
)

// maxFormatBytes 调试输出时最多展示的字节数
const maxFormatBytes = 512

// FormatBytes 将原始字节格式化为可打印的调试字符串
func FormatBytes(data []byte) string {
	if len(data) == 0 {
		return "<NULL>"
	}
	truncated := false
	if len(data) > maxFormatBytes {
		data = data[:maxFormatBytes]
		truncated = true
	}

	var result strings.Builder
	result.WriteString("b'")
	for _, b := range data {
		switch {
		case b == '\\' || b == '\'':
			result.WriteByte('\\')
			result.WriteByte(b)
		case b >= 32 && b <= 126:
			result.WriteByte(b)
		case b == '\n':
			result.WriteString("\\n")
		case b == '\r':
			result.WriteString("\\r")
		case b == '\t':
			result.WriteString("\\t")
		default:
			result.WriteString(fmt.Sprintf("\\x%02x", b))
		}
	}
	result.WriteString("'")
	if truncated {
		result.WriteString("...")
	}
	return result.String()
}

// FormatDuration 以秒为单位格式化耗时
func FormatDuration(seconds float64) string {
	if seconds < 1 {
		return fmt.Sprintf("%.0fms", seconds*1000)
	}
	return fmt.Sprintf("%.2fs", seconds)
}
