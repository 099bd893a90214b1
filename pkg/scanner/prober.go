package scanner

import (
	"context"
	"strconv"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/tongchengbin/xport/pkg/types"
)

// ProbeRunner 执行单个工作项的探测
type ProbeRunner interface {
	Probe(ctx context.Context, item types.WorkItem) (*types.ProbeResult, error)
}

// Prober TCP 连接探测器
type Prober struct {
	options  *ScanOptions
	dialer   Dialer
	resolver Resolver
	grabber  *BannerGrabber
}

// NewProber 创建探测器，resolver 为 nil 时使用默认DNS解析器
func NewProber(options *ScanOptions, resolver Resolver) (*Prober, error) {
	if options == nil {
		options = DefaultScanOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	dialer, err := NewDialer(options)
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		resolver = NewDNSResolver(options.Timeout)
	}
	return &Prober{
		options:  options,
		dialer:   dialer,
		resolver: resolver,
		grabber:  NewBannerGrabber(options),
	}, nil
}

// WithDialer 替换拨号器
func (p *Prober) WithDialer(dialer Dialer) *Prober {
	p.dialer = dialer
	return p
}

// Options 返回探测器使用的选项
func (p *Prober) Options() *ScanOptions {
	return p.options
}

// Probe 探测单个端口，结果总是非空
// 只有在无法创建套接字时返回 ErrSocketUnavailable
func (p *Prober) Probe(ctx context.Context, item types.WorkItem) (*types.ProbeResult, error) {
	start := time.Now()
	result := types.NewProbeResult(item, types.StatusError, "")
	defer func() {
		result.Duration = time.Since(start)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, p.options.Timeout)
	defer cancel()

	address := item.Address()
	switch {
	case item.Target.IsIP():
		result.IP = item.Target.Addr().String()
		address = types.JoinHostPort(result.IP, item.Port)
	case p.options.Proxy == nil:
		ip, err := p.resolver.Resolve(timeoutCtx, item.Target.Host())
		if err != nil {
			return p.fail(ctx, result, err)
		}
		result.IP = ip
		address = types.JoinHostPort(ip, item.Port)
	}
	// 代理模式下域名交给代理端解析
	conn, err := p.dialer.DialContext(timeoutCtx, "tcp", address)
	if err != nil {
		return p.fail(ctx, result, err)
	}
	defer conn.Close()

	result.Status = types.StatusOpen
	gologger.Debug().Msgf("%s open", item.Address())
	if p.options.GrabBanner {
		result.Banner = p.grabber.Grab(ctx, conn, item.Port)
	}
	return result, nil
}

// fail 根据错误类型填充结果
func (p *Prober) fail(ctx context.Context, result *types.ProbeResult, err error) (*types.ProbeResult, error) {
	errType := ParseNetworkError(err)
	if ctx.Err() != nil {
		// 父上下文取消，不是目标的问题
		errType = ErrorTypeCanceled
	}
	result.Status = errType.Status()
	if result.Status != types.StatusClosed {
		result.Error = DescribeError(errType, err)
	}
	gologger.Debug().Msgf("%s:%s %s: %v", result.Target.Host(), strconv.Itoa(result.Port), result.Status, err)
	if errType.Fatal() {
		return result, ErrSocketUnavailable
	}
	return result, nil
}
