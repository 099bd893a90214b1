package scanner

import (
	"errors"
	"net/url"
	"time"
)

const (
	// DefaultWorkers 默认并发探测数
	DefaultWorkers = 200
	// DefaultTimeout 默认连接超时
	DefaultTimeout = time.Second
	// DefaultMaxBannerLength 默认Banner最大长度(字符)
	DefaultMaxBannerLength = 256
)

// ScanOptions 扫描选项
type ScanOptions struct {
	// 连接超时时间 (DNS 解析同样受此限制)
	Timeout time.Duration
	// Banner 读取超时，为0时使用 Timeout
	ReadTimeout time.Duration
	// 最大并行探测数
	Workers int
	// 是否抓取Banner
	GrabBanner bool
	// Banner 最大长度
	MaxBannerLength int
	// SOCKS5 代理
	Proxy *url.URL
	// 是否打印响应数据
	DebugResponse bool
}

// ScanOption 扫描选项函数
type ScanOption func(*ScanOptions)

// DefaultScanOptions 返回默认扫描选项
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Timeout:         DefaultTimeout,
		Workers:         DefaultWorkers,
		GrabBanner:      true,
		MaxBannerLength: DefaultMaxBannerLength,
	}
}

// WithTimeout 设置连接超时
func WithTimeout(timeout time.Duration) ScanOption {
	return func(o *ScanOptions) {
		o.Timeout = timeout
	}
}

// WithReadTimeout 设置Banner读取超时
func WithReadTimeout(timeout time.Duration) ScanOption {
	return func(o *ScanOptions) {
		o.ReadTimeout = timeout
	}
}

// WithWorkers 设置并发数
func WithWorkers(workers int) ScanOption {
	return func(o *ScanOptions) {
		o.Workers = workers
	}
}

// WithBanner 设置是否抓取Banner
func WithBanner(enabled bool) ScanOption {
	return func(o *ScanOptions) {
		o.GrabBanner = enabled
	}
}

// WithMaxBannerLength 设置Banner最大长度
func WithMaxBannerLength(length int) ScanOption {
	return func(o *ScanOptions) {
		o.MaxBannerLength = length
	}
}

// WithProxy 设置SOCKS5代理
func WithProxy(proxy *url.URL) ScanOption {
	return func(o *ScanOptions) {
		o.Proxy = proxy
	}
}

// WithDebugResponse 设置是否打印响应数据
func WithDebugResponse(debug bool) ScanOption {
	return func(o *ScanOptions) {
		o.DebugResponse = debug
	}
}

// Apply 应用选项函数
func (o *ScanOptions) Apply(options ...ScanOption) *ScanOptions {
	for _, option := range options {
		option(o)
	}
	return o
}

// Clone 复制选项
func (o *ScanOptions) Clone() *ScanOptions {
	clone := *o
	if o.Proxy != nil {
		proxy := *o.Proxy
		clone.Proxy = &proxy
	}
	return &clone
}

// BannerTimeout 返回实际使用的Banner读取超时
func (o *ScanOptions) BannerTimeout() time.Duration {
	if o.ReadTimeout > 0 {
		return o.ReadTimeout
	}
	return o.Timeout
}

// Validate 校验选项
func (o *ScanOptions) Validate() error {
	if o.Workers <= 0 {
		return errors.New("worker count must be greater than 0")
	}
	if o.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if o.ReadTimeout < 0 {
		return errors.New("banner timeout must not be negative")
	}
	if o.GrabBanner && o.MaxBannerLength <= 0 {
		return errors.New("banner length must be greater than 0")
	}
	if o.Proxy != nil && o.Proxy.Scheme != "socks5" && o.Proxy.Scheme != "socks5h" {
		return errors.New("only socks5 proxies are supported: " + o.Proxy.Redacted())
	}
	return nil
}
