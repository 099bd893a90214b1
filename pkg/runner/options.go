package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/projectdiscovery/goflags"
	"github.com/tongchengbin/xport/pkg/api"
	"github.com/tongchengbin/xport/pkg/output"
	"github.com/tongchengbin/xport/pkg/scanner"
)

// autoSaveThreshold 端口数超过该值且开启 -save-auto 时自动保存开放端口
const autoSaveThreshold = 200

// Options 包含所有命令行选项
type Options struct {
	// 版本和Banner
	Version string
	Banner  string

	// 目标参数
	Target     goflags.StringSlice
	TargetFile string
	Ports      string
	Preset     string
	MaxHosts   int

	// 扫描选项
	Workers       int
	Timeout       string
	BannerTimeout string
	NoBanner      bool
	BannerLength  int
	Proxy         string
	DebugResponse bool

	// 输出选项
	SaveOpen   bool
	OpenOutput string
	SaveAll    bool
	AllOutput  string
	SaveAuto   bool
	JSONOutput string
	ShowClosed bool
	NoColor    bool
	Verbose    bool
	Silent     bool
	NoProgress bool
}

// PortExpression 返回实际使用的端口表达式，-preset 优先
func (o *Options) PortExpression() string {
	if o.Preset != "" {
		return o.Preset
	}
	return o.Ports
}

// Validate 校验命令行选项
func (o *Options) Validate() error {
	if len(o.Target) == 0 && o.TargetFile == "" {
		return errors.New("未指定扫描目标，使用 -target 或 -target-file 参数")
	}
	if o.Preset != "" {
		if _, ok := Presets[strings.ToLower(o.Preset)]; !ok {
			return fmt.Errorf("未知的端口预设 %q，可选: %s", o.Preset, strings.Join(PresetNames(), ", "))
		}
	}
	if o.Workers <= 0 {
		return fmt.Errorf("并发数必须大于0: %d", o.Workers)
	}
	if o.MaxHosts < 0 {
		return fmt.Errorf("max-hosts 不能为负数: %d", o.MaxHosts)
	}
	if _, err := parseTimeout(o.Timeout); err != nil {
		return err
	}
	if o.BannerTimeout != "" {
		if _, err := parseTimeout(o.BannerTimeout); err != nil {
			return err
		}
	}
	if _, err := scanner.ParseProxy(o.Proxy); err != nil {
		return err
	}
	return nil
}

// APIOptions 将命令行选项转换为API选项
func (o *Options) APIOptions() ([]api.Option, error) {
	timeout, err := parseTimeout(o.Timeout)
	if err != nil {
		return nil, err
	}
	var bannerTimeout time.Duration
	if o.BannerTimeout != "" {
		if bannerTimeout, err = parseTimeout(o.BannerTimeout); err != nil {
			return nil, err
		}
	}
	proxy, err := scanner.ParseProxy(o.Proxy)
	if err != nil {
		return nil, err
	}
	opts := []api.Option{
		api.WithTimeout(timeout),
		api.WithReadTimeout(bannerTimeout),
		api.WithWorkers(o.Workers),
		api.WithBanner(!o.NoBanner),
		api.WithMaxHosts(o.MaxHosts),
		api.WithPresets(Presets),
		api.WithDebugResponse(o.DebugResponse),
	}
	if o.BannerLength > 0 {
		opts = append(opts, api.WithMaxBannerLength(o.BannerLength))
	}
	if proxy != nil {
		opts = append(opts, api.WithProxy(proxy))
	}
	return opts, nil
}

// FileOuters 根据保存策略创建文件输出器
func (o *Options) FileOuters(portCount int) []output.Outer {
	var outers []output.Outer
	if o.SaveOpen || o.OpenOutput != "" || (o.SaveAuto && portCount > autoSaveThreshold) {
		outers = append(outers, output.NewCSVOuter(o.OpenOutput, false))
	}
	if o.SaveAll || o.AllOutput != "" {
		outers = append(outers, output.NewCSVOuter(o.AllOutput, true))
	}
	if o.JSONOutput != "" {
		outers = append(outers, output.NewJSONOuter(o.JSONOutput))
	}
	return outers
}

// parseTimeout 解析超时时间，支持秒数(可带小数)或 Go duration 格式
func parseTimeout(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("超时时间不能为空")
	}
	var timeout time.Duration
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		timeout = time.Duration(seconds * float64(time.Second))
	} else {
		timeout, err = time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("无效的超时时间 %q: 应为秒数(如 0.5)或时长(如 500ms)", value)
		}
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("超时时间必须大于0: %q", value)
	}
	return timeout, nil
}
