package api

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/tongchengbin/xport/pkg/input"
	"github.com/tongchengbin/xport/pkg/scanner"
	"github.com/tongchengbin/xport/pkg/types"
	"github.com/tongchengbin/xport/pkg/utils"
)

// ProgressCallback 进度回调
type ProgressCallback func(completed, total int, percentage float64)

// ResultCallback 结果回调
type ResultCallback func(result *types.ProbeResult)

// XPort 是公共API接口，用于与外部系统集成
type XPort struct {
	// 默认选项
	defaultOptions *scanner.ScanOptions
	// 单个表达式展开上限
	maxHosts int
	// 预设端口列表
	presets map[string][]int
	// 自定义解析器，为空时使用默认解析器
	resolver scanner.Resolver
	// probeRunner 非空时替代默认探测器
	probeRunner scanner.ProbeRunner

	initOnce sync.Once
	prober   scanner.ProbeRunner
	initErr  error
}

// Option 选项函数类型
type Option func(*XPort)

// NewXPort 创建新的XPort实例
func NewXPort(options ...Option) *XPort {
	x := &XPort{
		defaultOptions: scanner.DefaultScanOptions(),
		maxHosts:       input.DefaultMaxHosts,
	}
	for _, option := range options {
		option(x)
	}
	return x
}

// WithTimeout 设置连接超时
func WithTimeout(timeout time.Duration) Option {
	return func(x *XPort) {
		x.defaultOptions.Timeout = timeout
	}
}

// WithReadTimeout 设置Banner读取超时
func WithReadTimeout(timeout time.Duration) Option {
	return func(x *XPort) {
		x.defaultOptions.ReadTimeout = timeout
	}
}

// WithWorkers 设置并发数
func WithWorkers(workers int) Option {
	return func(x *XPort) {
		x.defaultOptions.Workers = workers
	}
}

// WithBanner 设置是否抓取Banner
func WithBanner(enabled bool) Option {
	return func(x *XPort) {
		x.defaultOptions.GrabBanner = enabled
	}
}

// WithMaxBannerLength 设置Banner最大长度
func WithMaxBannerLength(length int) Option {
	return func(x *XPort) {
		x.defaultOptions.MaxBannerLength = length
	}
}

// WithProxy 设置SOCKS5代理
func WithProxy(proxy *url.URL) Option {
	return func(x *XPort) {
		x.defaultOptions.Proxy = proxy
	}
}

// WithDebugResponse 设置是否打印响应数据
func WithDebugResponse(debug bool) Option {
	return func(x *XPort) {
		x.defaultOptions.DebugResponse = debug
	}
}

// WithMaxHosts 设置单个范围或CIDR最多展开的主机数，0 表示不限制
func WithMaxHosts(maxHosts int) Option {
	return func(x *XPort) {
		x.maxHosts = maxHosts
	}
}

// WithPresets 设置端口预设
func WithPresets(presets map[string][]int) Option {
	return func(x *XPort) {
		x.presets = presets
	}
}

// WithResolver 设置域名解析器
func WithResolver(resolver scanner.Resolver) Option {
	return func(x *XPort) {
		x.resolver = resolver
	}
}

// WithProbeRunner 替换默认探测器
func WithProbeRunner(runner scanner.ProbeRunner) Option {
	return func(x *XPort) {
		x.probeRunner = runner
	}
}

// Options 返回当前扫描选项的副本
func (x *XPort) Options() *scanner.ScanOptions {
	return x.defaultOptions.Clone()
}

// init 初始化探测器
func (x *XPort) init() error {
	x.initOnce.Do(func() {
		if x.probeRunner != nil {
			x.prober = x.probeRunner
			return
		}
		x.prober, x.initErr = scanner.NewProber(x.defaultOptions.Clone(), x.resolver)
		if x.initErr != nil {
			gologger.Error().Msgf("创建探测器失败: %v", x.initErr)
		}
	})
	return x.initErr
}

// Prepare 校验选项并展开目标和端口，任何错误都在打开套接字之前返回
func (x *XPort) Prepare(targetExprs []string, portExpr string) ([]types.Target, types.PortSet, error) {
	if err := x.defaultOptions.Validate(); err != nil {
		return nil, nil, err
	}
	if len(targetExprs) == 0 {
		return nil, nil, &types.InvalidTargetError{Input: "", Reason: "no targets specified"}
	}
	ports, err := utils.ResolvePorts(portExpr, x.presets)
	if err != nil {
		return nil, nil, err
	}
	targets, err := input.NewExpander(x.maxHosts).ExpandAll(targetExprs)
	if err != nil {
		return nil, nil, err
	}
	return targets, ports, nil
}

// Execute 展开表达式并执行扫描
func (x *XPort) Execute(ctx context.Context, targetExprs []string, portExpr string) (*types.ScanReport, error) {
	targets, ports, err := x.Prepare(targetExprs, portExpr)
	if err != nil {
		return nil, err
	}
	return x.ExecuteWithResultCallback(ctx, targets, ports, nil, nil)
}

// ExecuteWithResultCallback 扫描已展开的目标和端口，并实时回调每个结果
func (x *XPort) ExecuteWithResultCallback(
	ctx context.Context,
	targets []types.Target,
	ports types.PortSet,
	progressCallback ProgressCallback,
	resultCallback ResultCallback,
) (*types.ScanReport, error) {
	if err := x.init(); err != nil {
		return nil, err
	}
	total := len(targets) * len(ports)
	completed := 0
	lastProgressUpdate := time.Now()
	progressUpdateInterval := 500 * time.Millisecond

	coordinator := scanner.NewCoordinator(x.prober, scanner.WithWorkers(x.defaultOptions.Workers))
	report, err := coordinator.RunWithCallback(ctx, targets, ports, func(result *types.ProbeResult) {
		completed++
		if resultCallback != nil {
			resultCallback(result)
		}
		if progressCallback != nil && (completed == total || time.Since(lastProgressUpdate) >= progressUpdateInterval) {
			progressCallback(completed, total, float64(completed)/float64(total)*100)
			lastProgressUpdate = time.Now()
		}
	})
	if report != nil {
		gologger.Debug().Msgf("扫描结束: %d 个结果, 开放 %d, 耗时 %s", report.Total, report.Open, report.Elapsed)
	}
	return report, err
}
