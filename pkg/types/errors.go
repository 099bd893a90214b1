package types

import "fmt"

const (
	// TargetGrammar 目标表达式的可接受格式
	TargetGrammar = "host | A.B.C.D | A.B.C.D-E.F.G.H | A.B.C.D/N"
	// RangeGrammar IP范围的可接受格式
	RangeGrammar = "A.B.C.D-E.F.G.H (IPv4, start <= end)"
	// PortGrammar 端口表达式的可接受格式
	PortGrammar = "comma separated ports or lo-hi ranges within 1-65535, e.g. 22,80,8000-8100"
)

// InvalidTargetError 目标表达式不属于任何可接受的格式
type InvalidTargetError struct {
	Input  string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s (expected %s)", e.Input, e.Reason, TargetGrammar)
}

// InvalidRangeError IP范围不合法
type InvalidRangeError struct {
	Input  string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range %q: %s (expected %s)", e.Input, e.Reason, RangeGrammar)
}

// TargetSetTooLargeError 展开后的主机数超过安全上限
type TargetSetTooLargeError struct {
	Input string
	Count uint64
	Limit int
}

func (e *TargetSetTooLargeError) Error() string {
	return fmt.Sprintf("target %q expands to %d hosts, exceeding the limit of %d (raise -max-hosts to allow)", e.Input, e.Count, e.Limit)
}

// InvalidPortError 端口表达式不合法
type InvalidPortError struct {
	Input  string
	Token  string
	Reason string
}

func (e *InvalidPortError) Error() string {
	if e.Token != "" && e.Token != e.Input {
		return fmt.Sprintf("invalid ports %q: token %q %s (expected %s)", e.Input, e.Token, e.Reason, PortGrammar)
	}
	return fmt.Sprintf("invalid ports %q: %s (expected %s)", e.Input, e.Reason, PortGrammar)
}
