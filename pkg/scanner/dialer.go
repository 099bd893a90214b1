package scanner

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

// Dialer 建立TCP连接
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// NewDialer 根据选项创建拨号器，设置代理时通过SOCKS5连接
func NewDialer(options *ScanOptions) (Dialer, error) {
	direct := &net.Dialer{
		Timeout:   options.Timeout,
		KeepAlive: -1,
	}
	if options.Proxy == nil {
		return direct, nil
	}
	return newSocks5Dialer(options.Proxy, direct)
}

func newSocks5Dialer(proxyURL *url.URL, forward *net.Dialer) (Dialer, error) {
	var auth *proxy.Auth
	if proxyURL.User != nil {
		password, _ := proxyURL.User.Password()
		auth = &proxy.Auth{
			User:     proxyURL.User.Username(),
			Password: password,
		}
	}
	dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, forward)
	if err != nil {
		return nil, fmt.Errorf("create socks5 dialer %s: %w", proxyURL.Redacted(), err)
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 dialer %s does not support context", proxyURL.Redacted())
	}
	return contextDialer, nil
}

// ParseProxy 解析代理地址，格式 socks5://[user:pass@]host:port
func ParseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if proxyURL.Scheme != "socks5" && proxyURL.Scheme != "socks5h" {
		return nil, fmt.Errorf("invalid proxy %q: only socks5://[user:pass@]host:port is supported", raw)
	}
	if proxyURL.Host == "" || proxyURL.Port() == "" {
		return nil, fmt.Errorf("invalid proxy %q: expected socks5://[user:pass@]host:port", raw)
	}
	return proxyURL, nil
}
