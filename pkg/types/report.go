package types

import (
	"encoding/json"
	"sort"
	"time"
)

// ScanReport 一次扫描的最终结果，按 (Target, Port) 升序排列
type ScanReport struct {
	Results   []*ProbeResult `json:"results"`
	Total     int            `json:"total"`
	Open      int            `json:"open"`
	Closed    int            `json:"closed"`
	Filtered  int            `json:"filtered"`
	Errors    int            `json:"errors"`
	Elapsed   time.Duration  `json:"-"`
	StartedAt time.Time      `json:"started_at"`
	// 预期的结果数量，等于工作项数量
	expected int
}

// HostGroup 同一目标的所有结果
type HostGroup struct {
	Target  Target
	IP      string
	Results []*ProbeResult
}

// NewScanReport 创建扫描报告，expected 为工作项总数
func NewScanReport(expected int) *ScanReport {
	return &ScanReport{
		Results:   make([]*ProbeResult, 0, expected),
		StartedAt: time.Now(),
		expected:  expected,
	}
}

// Add 追加一个结果，仅由协调器的收集协程调用
func (r *ScanReport) Add(result *ProbeResult) {
	r.Results = append(r.Results, result)
}

// Expected 返回预期结果数量
func (r *ScanReport) Expected() int {
	return r.expected
}

// Complete 结果数量等于工作项数量时报告才算完成
func (r *ScanReport) Complete() bool {
	return len(r.Results) == r.expected
}

// Finalize 排序并重新统计计数器
func (r *ScanReport) Finalize(elapsed time.Duration) {
	sort.SliceStable(r.Results, func(i, j int) bool {
		a, b := r.Results[i], r.Results[j]
		if c := a.Target.Compare(b.Target); c != 0 {
			return c < 0
		}
		return a.Port < b.Port
	})
	r.Total = len(r.Results)
	r.Open, r.Closed, r.Filtered, r.Errors = 0, 0, 0, 0
	for _, result := range r.Results {
		switch result.Status {
		case StatusOpen:
			r.Open++
		case StatusClosed:
			r.Closed++
		case StatusFiltered:
			r.Filtered++
		default:
			r.Errors++
		}
	}
	r.Elapsed = elapsed
}

// OpenResults 返回所有开放端口的结果
func (r *ScanReport) OpenResults() []*ProbeResult {
	open := make([]*ProbeResult, 0, r.Open)
	for _, result := range r.Results {
		if result.IsOpen() {
			open = append(open, result)
		}
	}
	return open
}

// Groups 按目标分组，依赖 Finalize 之后的顺序
func (r *ScanReport) Groups() []*HostGroup {
	var groups []*HostGroup
	var current *HostGroup
	for _, result := range r.Results {
		if current == nil || current.Target.Compare(result.Target) != 0 {
			current = &HostGroup{Target: result.Target}
			groups = append(groups, current)
		}
		if current.IP == "" && result.IP != "" {
			current.IP = result.IP
		}
		current.Results = append(current.Results, result)
	}
	return groups
}

// MarshalJSON 耗时以秒为单位输出
func (r *ScanReport) MarshalJSON() ([]byte, error) {
	type alias ScanReport
	return json.Marshal(&struct {
		*alias
		Elapsed float64 `json:"elapsed"`
	}{
		alias:   (*alias)(r),
		Elapsed: r.Elapsed.Seconds(),
	})
}
