package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tongchengbin/xport/pkg/types"
)

func dialError(syscallName string, errno syscall.Errno) error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: syscallName, Err: errno}}
}

func TestParseNetworkError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		want   ErrorType
		status types.Status
		cause  string
	}{
		{"nil", nil, ErrNil, types.StatusOpen, ""},
		{"refused", dialError("connect", syscall.ECONNREFUSED), ErrorTypeConnectionRefused, types.StatusClosed, "connection refused"},
		{"deadline", context.DeadlineExceeded, ErrorTypeConnectionTimeout, types.StatusFiltered, "timeout"},
		{"io timeout", &net.OpError{Op: "dial", Err: os.ErrDeadlineExceeded}, ErrorTypeConnectionTimeout, types.StatusFiltered, "timeout"},
		{"dns", &net.DNSError{Err: "no such host", Name: "nx.example", IsNotFound: true}, ErrorTypeDNSError, types.StatusError, "dns resolution failed: no such host"},
		{"dns timeout", fmt.Errorf("%w: nx.example: %w", ErrDNSError, context.DeadlineExceeded), ErrorTypeDNSError, types.StatusError, "dns resolution failed"},
		{"no address", fmt.Errorf("%w: nx.example: %w", ErrDNSError, ErrNoAddress), ErrorTypeDNSError, types.StatusError, "dns resolution failed: no address found"},
		{"network unreachable", dialError("connect", syscall.ENETUNREACH), ErrorTypeNetworkUnreachable, types.StatusError, "network unreachable"},
		{"host unreachable", dialError("connect", syscall.EHOSTUNREACH), ErrorTypeHostUnreachable, types.StatusError, "host unreachable"},
		{"permission", dialError("connect", syscall.EACCES), ErrorTypePermissionDenied, types.StatusError, "permission denied"},
		{"canceled", fmt.Errorf("dial: %w", context.Canceled), ErrorTypeCanceled, types.StatusError, "scan canceled"},
		{"socket", dialError("socket", syscall.EMFILE), ErrorTypeSocket, types.StatusError, "socket unavailable: too many open files"},
		{"proxy refused", errors.New("socks connect tcp 127.0.0.1:1080->a:80: unknown error connection refused"), ErrorTypeConnectionRefused, types.StatusClosed, "connection refused"},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, types.StatusError, "something odd"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errType := ParseNetworkError(tc.err)
			assert.Equal(t, tc.want, errType)
			assert.Equal(t, tc.status, errType.Status())
			assert.Equal(t, tc.cause, DescribeError(errType, tc.err))
			assert.Equal(t, tc.want == ErrorTypeSocket, errType.Fatal())
		})
	}
}
