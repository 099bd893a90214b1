package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/tongchengbin/xport/pkg/api"
	"github.com/tongchengbin/xport/pkg/input"
	"github.com/tongchengbin/xport/pkg/output"
	"github.com/tongchengbin/xport/pkg/types"
	"github.com/tongchengbin/xport/pkg/utils"
)

// Runner 结构体包含扫描运行时所需的所有内容
type Runner struct {
	options *Options
	xport   *api.XPort
	stdout  io.Writer
}

// New 创建一个新的Runner实例
func New(options *Options, extra ...api.Option) (*Runner, error) {
	// 设置日志级别
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	} else if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	} else {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelInfo)
	}

	apiOptions, err := options.APIOptions()
	if err != nil {
		return nil, err
	}
	return &Runner{
		options: options,
		xport:   api.NewXPort(append(apiOptions, extra...)...),
		stdout:  os.Stdout,
	}, nil
}

// SetOutput 设置控制台输出位置
func (r *Runner) SetOutput(w io.Writer) {
	r.stdout = w
}

// ShowBanner 显示程序的banner
func (r *Runner) ShowBanner() {
	if !r.options.Silent {
		fmt.Fprint(os.Stderr, r.options.Banner)
	}
}

// Run 执行扫描，输出结果并按保存策略写入文件
func (r *Runner) Run(ctx context.Context) error {
	provider, err := input.CreateProvider(r.options.Target, r.options.TargetFile)
	if err != nil {
		return err
	}
	exprs := input.Collect(provider)
	provider.Close()

	targets, ports, err := r.xport.Prepare(exprs, r.options.PortExpression())
	if err != nil {
		return err
	}
	total := len(targets) * ports.Len()
	gologger.Info().Msgf("共 %d 个目标, %d 个端口, %d 个探测任务", len(targets), ports.Len(), total)

	// 创建上下文
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 处理中断信号
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	defer signal.Stop(signalChan)
	go func() {
		select {
		case <-signalChan:
			gologger.Info().Msg("接收到中断信号，正在停止扫描...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// 创建进度跟踪器
	var progressTracker *utils.Progress
	if !r.options.Silent && !r.options.NoProgress && total > 0 {
		progressTracker = utils.NewProgress("扫描进度", total)
		go progressTracker.Start()
	}

	report, scanErr := r.xport.ExecuteWithResultCallback(ctx, targets, ports, nil, func(result *types.ProbeResult) {
		if progressTracker != nil {
			progressTracker.Increment(result.IsOpen())
		}
		if result.IsOpen() {
			gologger.Debug().Msgf("发现开放端口 %s", types.JoinHostPort(result.Target.Host(), result.Port))
		}
	})
	if progressTracker != nil {
		progressTracker.Stop()
	}
	if report == nil {
		return scanErr
	}
	if errors.Is(scanErr, context.Canceled) {
		gologger.Warning().Msg("扫描已中断，输出部分结果")
	}

	colored := output.ColorEnabled(r.stdout, r.options.NoColor)
	console := output.NewConsoleOuter(r.stdout, colored, r.options.Silent, r.options.ShowClosed)
	if err := console.Output(report); err != nil {
		return fmt.Errorf("输出结果失败: %w", err)
	}
	if err := r.save(report, ports.Len()); err != nil {
		return err
	}
	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		return scanErr
	}
	return nil
}

// save 按保存策略写入文件
func (r *Runner) save(report *types.ScanReport, portCount int) error {
	for _, outer := range r.options.FileOuters(portCount) {
		if err := outer.Output(report); err != nil {
			return fmt.Errorf("保存结果失败: %w", err)
		}
		switch o := outer.(type) {
		case *output.CSVOuter:
			gologger.Info().Msgf("结果已保存到 %s", o.Filename())
		case *output.JSONOuter:
			gologger.Info().Msgf("报告已保存到 %s", o.OutputFile)
		}
	}
	return nil
}
