package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/tongchengbin/xport/pkg/types"
)

const (
	// OpenPortsPrefix 开放端口CSV的默认文件名前缀
	OpenPortsPrefix = "open_ports"
	// FullScanPrefix 完整结果CSV的默认文件名前缀
	FullScanPrefix = "scan_full"
)

// AutoFilename 生成 <prefix>_<YYYYMMDD_HHMMSS>.csv 形式的文件名
func AutoFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format("20060102_150405"))
}

// CSVOuter CSV输出实现
type CSVOuter struct {
	OutputFile string
	// 是否输出所有端口，否则只输出开放端口
	All bool
}

// NewCSVOuter 创建一个新的CSV输出器，outputFile 为空时自动生成文件名
func NewCSVOuter(outputFile string, all bool) *CSVOuter {
	if outputFile == "" {
		prefix := OpenPortsPrefix
		if all {
			prefix = FullScanPrefix
		}
		outputFile = AutoFilename(prefix, time.Now())
	}
	return &CSVOuter{
		OutputFile: outputFile,
		All:        all,
	}
}

// Filename 返回实际写入的文件名
func (o *CSVOuter) Filename() string {
	return o.OutputFile
}

// Output 实现Outer接口
func (o *CSVOuter) Output(report *types.ScanReport) error {
	data, err := o.Encode(report)
	if err != nil {
		return err
	}
	return WriteAtomic(o.OutputFile, data)
}

// Encode 将报告编码为CSV
func (o *CSVOuter) Encode(report *types.ScanReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"host", "port", "banner"}
	if o.All {
		header = []string{"host", "port", "status", "banner"}
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, result := range report.Results {
		var record []string
		host := escapeCell(result.Target.Host())
		port := strconv.Itoa(result.Port)
		banner := escapeCell(result.Banner)
		if o.All {
			record = []string{host, port, string(result.Status), banner}
		} else {
			if !result.IsOpen() {
				continue
			}
			record = []string{host, port, banner}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// escapeCell 以公式字符开头的单元格加上单引号，避免被电子表格执行
func escapeCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}
