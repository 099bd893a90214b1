package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/tongchengbin/xport/internal/worker"
	"github.com/tongchengbin/xport/pkg/types"
)

// ResultCallback 每个探测结果产生时调用，调用方在协调器的单个协程中执行
type ResultCallback func(result *types.ProbeResult)

// Coordinator 将工作项分发给探测器并汇总扫描报告
type Coordinator struct {
	prober  ProbeRunner
	options *ScanOptions
}

// NewCoordinator 创建扫描协调器
func NewCoordinator(prober ProbeRunner, options ...ScanOption) *Coordinator {
	opts := DefaultScanOptions()
	if p, ok := prober.(*Prober); ok {
		opts = p.Options().Clone()
	}
	return &Coordinator{
		prober:  prober,
		options: opts.Apply(options...),
	}
}

// Run 扫描所有目标和端口的组合
func (c *Coordinator) Run(ctx context.Context, targets []types.Target, ports types.PortSet) (*types.ScanReport, error) {
	return c.RunWithCallback(ctx, targets, ports, nil)
}

// RunWithCallback 扫描并在每个结果产生时回调
// 返回的报告总是完整的：每个工作项对应一个结果
func (c *Coordinator) RunWithCallback(ctx context.Context, targets []types.Target, ports types.PortSet, onResult ResultCallback) (*types.ScanReport, error) {
	if c.options.Workers <= 0 {
		return nil, errors.New("worker count must be greater than 0")
	}
	items := types.BuildWorkItems(targets, ports)
	report := types.NewScanReport(len(items))
	start := time.Now()
	report.StartedAt = start
	if len(items) == 0 {
		report.Finalize(time.Since(start))
		return report, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := min(c.options.Workers, len(items))
	gologger.Debug().Msgf("scanning %d targets x %d ports with %d workers", len(targets), len(ports), workers)

	var fatal error
	pool := worker.NewPool(workers, func(ctx context.Context, item types.WorkItem) (*types.ProbeResult, error) {
		return c.prober.Probe(ctx, item)
	})
	for res := range pool.Execute(runCtx, items) {
		result := c.collect(ctx, items[res.Index], res, fatal != nil)
		if errors.Is(res.Error, ErrSocketUnavailable) && fatal == nil {
			fatal = ErrSocketUnavailable
			gologger.Error().Msgf("无法创建套接字，终止扫描: %s", result.Error)
			cancel()
		}
		report.Add(result)
		if onResult != nil {
			onResult(result)
		}
	}
	report.Finalize(time.Since(start))

	if fatal != nil {
		return report, fatal
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// collect 将工作池结果转换为探测结果
func (c *Coordinator) collect(ctx context.Context, item types.WorkItem, res *worker.Result[*types.ProbeResult], aborted bool) *types.ProbeResult {
	cause := causeCanceled
	if aborted && ctx.Err() == nil {
		cause = causeAborted
	}
	if res.Skipped {
		return types.NewProbeResult(item, types.StatusError, cause)
	}
	result := res.Value
	if result != nil && result.Error == causeCanceled {
		result.Error = cause
	}
	if result == nil {
		cause = "probe failed"
		if res.Error != nil {
			cause = res.Error.Error()
		}
		result = types.NewProbeResult(item, types.StatusError, cause)
		result.Duration = res.Duration
	}
	return result
}

// Run 使用默认探测器扫描，workerCount 和 timeout 必须为正数
func Run(ctx context.Context, targets []types.Target, ports types.PortSet, workerCount int, timeout time.Duration) (*types.ScanReport, error) {
	options := DefaultScanOptions().Apply(WithWorkers(workerCount), WithTimeout(timeout))
	prober, err := NewProber(options, nil)
	if err != nil {
		return nil, err
	}
	return NewCoordinator(prober).Run(ctx, targets, ports)
}
