package utils

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/projectdiscovery/gologger"
	"github.com/schollz/progressbar/v3"
)

// Progress 表示一个进度跟踪器
// 终端下使用进度条，非终端时周期性打印日志
type Progress struct {
	name      string
	total     int
	completed atomic.Int64
	open      atomic.Int64
	bar       *progressbar.ProgressBar
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
	started   atomic.Bool
	done      chan struct{}
}

// NewProgress 创建一个新的进度跟踪器，输出到标准错误
func NewProgress(name string, total int) *Progress {
	return NewProgressWithWriter(name, total, os.Stderr)
}

// NewProgressWithWriter 创建进度跟踪器，w 为终端时启用进度条
func NewProgressWithWriter(name string, total int, w io.Writer) *Progress {
	p := &Progress{
		name:     name,
		total:    total,
		interval: 5 * time.Second,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if IsTerminal(w) {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("probes"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription("[cyan]"+name+"[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	return p
}

// IsTerminal 判断输出是否为终端
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start 开始显示进度，阻塞直到 Stop 被调用
func (p *Progress) Start() {
	p.started.Store(true)
	defer close(p.done)
	if p.bar != nil {
		<-p.stop
		_ = p.bar.Finish()
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.printProgress()
		case <-p.stop:
			p.printProgress()
			return
		}
	}
}

// Stop 停止显示进度并等待最后一次输出
func (p *Progress) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	if p.started.Load() {
		<-p.done
	}
}

// Increment 增加已完成的数量
func (p *Progress) Increment(open bool) {
	p.completed.Add(1)
	if open {
		p.open.Add(1)
	}
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Completed 返回已完成数量
func (p *Progress) Completed() int64 {
	return p.completed.Load()
}

// printProgress 打印当前进度
func (p *Progress) printProgress() {
	completed := p.completed.Load()
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(completed) / float64(p.total) * 100
	}
	gologger.Info().Msgf("%s: [%d/%d] %.2f%% | 开放: \x1b[32m%d\x1b[0m",
		p.name,
		completed,
		p.total,
		percentage,
		p.open.Load())
}
