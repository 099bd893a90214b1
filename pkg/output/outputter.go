package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/tongchengbin/xport/pkg/types"
	"github.com/tongchengbin/xport/pkg/utils"
)

// Outer 定义结果输出接口
type Outer interface {
	// Output 输出扫描结果
	Output(report *types.ScanReport) error
}

// ColorEnabled 输出为终端且未禁用颜色时启用彩色输出
func ColorEnabled(w io.Writer, noColor bool) bool {
	return !noColor && utils.IsTerminal(w)
}

// ConsoleOuter 控制台输出实现
type ConsoleOuter struct {
	Writer     io.Writer
	Silent     bool
	ShowClosed bool
	au         aurora.Aurora
}

// NewConsoleOuter 创建一个新的控制台输出器，colored 决定是否使用ANSI颜色
func NewConsoleOuter(w io.Writer, colored, silent, showClosed bool) *ConsoleOuter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOuter{
		Writer:     w,
		Silent:     silent,
		ShowClosed: showClosed,
		au:         aurora.NewAurora(colored),
	}
}

// Output 实现Outer接口
func (o *ConsoleOuter) Output(report *types.ScanReport) error {
	var b strings.Builder
	if !o.Silent {
		for _, group := range report.Groups() {
			o.writeGroup(&b, group)
		}
	}
	b.WriteString(o.Summary(report))
	b.WriteString("\n")
	_, err := io.WriteString(o.Writer, b.String())
	return err
}

// writeGroup 输出单个目标的结果
func (o *ConsoleOuter) writeGroup(b *strings.Builder, group *types.HostGroup) {
	var lines []string
	for _, result := range group.Results {
		if !result.IsOpen() && !o.ShowClosed {
			continue
		}
		lines = append(lines, o.formatResult(result))
	}
	if len(lines) == 0 {
		return
	}
	header := group.Target.Host()
	if group.IP != "" && group.IP != header {
		header += " (" + group.IP + ")"
	}
	fmt.Fprintf(b, "%s\n", o.au.Bold(o.au.Cyan("== Target: "+header+" ==")))
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

// formatResult 格式化单行结果: 端口 状态 Banner
func (o *ConsoleOuter) formatResult(result *types.ProbeResult) string {
	status := fmt.Sprintf("%-8s", strings.ToUpper(string(result.Status)))
	var colored aurora.Value
	switch result.Status {
	case types.StatusOpen:
		colored = o.au.Green(status)
	case types.StatusClosed:
		colored = o.au.Red(status)
	case types.StatusFiltered:
		colored = o.au.Yellow(status)
	default:
		colored = o.au.Magenta(status)
	}
	detail := result.Banner
	if detail == "" && result.Status == types.StatusError {
		detail = result.Error
	}
	if detail == "" {
		return fmt.Sprintf("  %-6d %s %s", result.Port, colored, o.au.BrightBlack("-"))
	}
	return fmt.Sprintf("  %-6d %s %s", result.Port, colored, detail)
}

// Summary 返回一行扫描统计
func (o *ConsoleOuter) Summary(report *types.ScanReport) string {
	return fmt.Sprintf("扫描完成: 共 %d 个探测, 开放 %d, 关闭 %d, 过滤 %d, 错误 %d, 耗时 %s",
		report.Total,
		o.au.Green(report.Open),
		report.Closed,
		report.Filtered,
		report.Errors,
		utils.FormatDuration(report.Elapsed.Seconds()))
}

// JSONOuter JSON输出实现
type JSONOuter struct {
	OutputFile string
	Writer     io.Writer
}

// NewJSONOuter 创建一个新的JSON输出器，outputFile 为空或 "-" 时写入标准输出
func NewJSONOuter(outputFile string) *JSONOuter {
	return &JSONOuter{
		OutputFile: outputFile,
		Writer:     os.Stdout,
	}
}

// Output 实现Outer接口
func (o *JSONOuter) Output(report *types.ScanReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if o.OutputFile == "" || o.OutputFile == "-" {
		_, err = o.Writer.Write(data)
		return err
	}
	return WriteAtomic(o.OutputFile, data)
}
