package scanner

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/tongchengbin/xport/pkg/types"
)

// ErrorType 错误类型枚举
type ErrorType int

const (
	ErrNil ErrorType = iota
	ErrorTypeUnknown
	ErrorTypeConnectionRefused
	ErrorTypeConnectionTimeout
	ErrorTypeNetworkUnreachable
	ErrorTypeHostUnreachable
	ErrorTypeDNSError
	ErrorTypePermissionDenied
	ErrorTypeCanceled
	ErrorTypeSocket
)

var (
	// ErrSocketUnavailable 无法创建套接字，扫描无法继续
	ErrSocketUnavailable = errors.New("unable to create socket")

	// ErrDNSError 表示DNS解析错误
	ErrDNSError = errors.New("dns resolution error")

	// ErrNoAddress 域名没有可用地址
	ErrNoAddress = errors.New("no address found")
)

const (
	causeCanceled = "scan canceled"
	causeAborted  = "scan aborted"
)

// String 返回错误类型名称
func (e ErrorType) String() string {
	switch e {
	case ErrNil:
		return "none"
	case ErrorTypeConnectionRefused:
		return "connection refused"
	case ErrorTypeConnectionTimeout:
		return "timeout"
	case ErrorTypeNetworkUnreachable:
		return "network unreachable"
	case ErrorTypeHostUnreachable:
		return "host unreachable"
	case ErrorTypeDNSError:
		return "dns resolution failed"
	case ErrorTypePermissionDenied:
		return "permission denied"
	case ErrorTypeCanceled:
		return causeCanceled
	case ErrorTypeSocket:
		return "socket unavailable"
	default:
		return "unknown error"
	}
}

// Status 将错误类型映射为端口状态
func (e ErrorType) Status() types.Status {
	switch e {
	case ErrNil:
		return types.StatusOpen
	case ErrorTypeConnectionRefused:
		return types.StatusClosed
	case ErrorTypeConnectionTimeout:
		return types.StatusFiltered
	default:
		return types.StatusError
	}
}

// Fatal 判断该错误是否需要终止整个扫描
func (e ErrorType) Fatal() bool {
	return e == ErrorTypeSocket
}

// ParseNetworkError 解析网络错误类型
func ParseNetworkError(err error) ErrorType {
	if err == nil {
		return ErrNil
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypeCanceled
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Syscall == "socket" {
		return ErrorTypeSocket
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, ErrDNSError) || errors.Is(err, ErrNoAddress) {
		return ErrorTypeDNSError
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return ErrorTypeConnectionRefused
	case errors.Is(err, syscall.ENETUNREACH):
		return ErrorTypeNetworkUnreachable
	case errors.Is(err, syscall.EHOSTUNREACH):
		return ErrorTypeHostUnreachable
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return ErrorTypePermissionDenied
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return ErrorTypeConnectionTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeConnectionTimeout
	}
	// 代理返回的错误只有文本
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return ErrorTypeConnectionRefused
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return ErrorTypeConnectionTimeout
	case strings.Contains(msg, "network unreachable"), strings.Contains(msg, "network is unreachable"):
		return ErrorTypeNetworkUnreachable
	case strings.Contains(msg, "host unreachable"), strings.Contains(msg, "no route to host"):
		return ErrorTypeHostUnreachable
	case strings.Contains(msg, "no such host"):
		return ErrorTypeDNSError
	}
	return ErrorTypeUnknown
}

// DescribeError 返回简短的失败原因
func DescribeError(errType ErrorType, err error) string {
	switch errType {
	case ErrNil:
		return ""
	case ErrorTypeDNSError:
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.Err != "" {
			return errType.String() + ": " + dnsErr.Err
		}
		if errors.Is(err, ErrNoAddress) {
			return errType.String() + ": " + ErrNoAddress.Error()
		}
		return errType.String()
	case ErrorTypeSocket:
		var sysErr *os.SyscallError
		if errors.As(err, &sysErr) {
			return errType.String() + ": " + sysErr.Err.Error()
		}
		return errType.String()
	case ErrorTypeUnknown:
		if err != nil {
			return err.Error()
		}
	}
	return errType.String()
}
