package scanner

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/projectdiscovery/fastdialer/fastdialer"
	"github.com/projectdiscovery/gologger"
)

// Resolver 将主机名解析为IP地址
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// DNSResolver 基于 fastdialer 的解析器，首次解析域名时才初始化
type DNSResolver struct {
	timeout time.Duration
	once    sync.Once
	dialer  *fastdialer.Dialer
}

// NewDNSResolver 创建解析器
func NewDNSResolver(timeout time.Duration) *DNSResolver {
	return &DNSResolver{timeout: timeout}
}

func (r *DNSResolver) init() {
	opts := fastdialer.DefaultOptions
	if r.timeout > 0 {
		opts.DialerTimeout = r.timeout
	}
	dialer, err := fastdialer.NewDialer(opts)
	if err != nil {
		gologger.Warning().Msgf("初始化 fastdialer 失败，使用系统解析器: %v", err)
		return
	}
	r.dialer = dialer
}

// Resolve 解析主机名，IP 字面量原样返回；优先返回 IPv4 地址
func (r *DNSResolver) Resolve(ctx context.Context, host string) (string, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String(), nil
	}
	r.once.Do(r.init)
	if r.dialer == nil {
		return systemResolve(ctx, host)
	}

	type answer struct {
		ip  string
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		data, err := r.dialer.GetDNSData(host)
		if err != nil {
			ch <- answer{err: err}
			return
		}
		for _, ip := range append(data.A, data.AAAA...) {
			if ip != "" {
				ch <- answer{ip: ip}
				return
			}
		}
		ch <- answer{err: ErrNoAddress}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %s: %w", ErrDNSError, host, ctx.Err())
	case ans := <-ch:
		if ans.err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrDNSError, host, ans.err)
		}
		return ans.ip, nil
	}
}

// Close 释放底层资源
func (r *DNSResolver) Close() {
	if r.dialer != nil {
		r.dialer.Close()
	}
}

func systemResolve(ctx context.Context, host string) (string, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	var fallback string
	for _, addr := range addrs {
		if addr.IP.To4() != nil {
			return addr.IP.String(), nil
		}
		if fallback == "" {
			fallback = addr.IP.String()
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("%w: %w: %s", ErrDNSError, ErrNoAddress, host)
	}
	return fallback, nil
}
