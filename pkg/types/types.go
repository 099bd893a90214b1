package types

import (
	"encoding/json"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// Status 端口探测状态
type Status string

const (
	// StatusOpen 连接建立成功
	StatusOpen Status = "open"
	// StatusClosed 连接被主动拒绝
	StatusClosed Status = "closed"
	// StatusFiltered 超时未响应，可能被防火墙丢弃
	StatusFiltered Status = "filtered"
	// StatusError DNS 解析失败或其他系统错误
	StatusError Status = "error"
)

// Target 表示一个具体的扫描主机（IP 或域名），创建后不可修改
type Target struct {
	host string
	addr netip.Addr
}

// NewTarget 创建扫描目标，IP 字面量会被解析以便按数值排序
func NewTarget(host string) Target {
	t := Target{host: host}
	if addr, err := netip.ParseAddr(host); err == nil {
		t.addr = addr
	}
	return t
}

// TargetFromAddr 从IP地址创建扫描目标
func TargetFromAddr(addr netip.Addr) Target {
	return Target{host: addr.String(), addr: addr}
}

// Host 返回原始主机标识
func (t Target) Host() string {
	return t.host
}

// Addr 返回解析后的IP地址，域名目标返回零值
func (t Target) Addr() netip.Addr {
	return t.addr
}

// IsIP 判断目标是否为IP字面量
func (t Target) IsIP() bool {
	return t.addr.IsValid()
}

// String 返回目标的字符串表示
func (t Target) String() string {
	return t.host
}

// Compare IP 在域名之前，IP 按数值比较，域名按字典序（忽略大小写）比较
func (t Target) Compare(other Target) int {
	switch {
	case t.IsIP() && other.IsIP():
		return t.addr.Compare(other.addr)
	case t.IsIP():
		return -1
	case other.IsIP():
		return 1
	}
	if c := strings.Compare(strings.ToLower(t.host), strings.ToLower(other.host)); c != 0 {
		return c
	}
	return strings.Compare(t.host, other.host)
}

// Key 返回去重使用的规范化键
func (t Target) Key() string {
	if t.IsIP() {
		return t.addr.String()
	}
	return strings.ToLower(strings.TrimSuffix(t.host, "."))
}

// MarshalText 目标在 JSON 中输出为主机字符串
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.host), nil
}

// PortSet 升序且不重复的端口集合，取值范围 [1, 65535]
type PortSet []int

// Len 返回端口数量
func (p PortSet) Len() int {
	return len(p)
}

// Contains 判断端口是否在集合中
func (p PortSet) Contains(port int) bool {
	lo, hi := 0, len(p)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch {
		case p[mid] == port:
			return true
		case p[mid] < port:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// WorkItem 一次计划中的 (Target, Port) 探测
type WorkItem struct {
	Target Target
	Port   int
}

// Address 返回 host:port 形式的地址
func (w WorkItem) Address() string {
	return JoinHostPort(w.Target.Host(), w.Port)
}

// String 返回工作项描述
func (w WorkItem) String() string {
	return w.Address()
}

// JoinHostPort 拼接主机和端口，兼容IPv6
func JoinHostPort(host string, port int) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + strconv.Itoa(port)
	}
	return host + ":" + strconv.Itoa(port)
}

// BuildWorkItems 生成 Targets × PortSet 的笛卡尔积，按目标顺序再按端口顺序排列
func BuildWorkItems(targets []Target, ports PortSet) []WorkItem {
	items := make([]WorkItem, 0, len(targets)*len(ports))
	for _, target := range targets {
		for _, port := range ports {
			items = append(items, WorkItem{Target: target, Port: port})
		}
	}
	return items
}

// ProbeResult 单个工作项的探测结果，交给协调器后不再修改
type ProbeResult struct {
	Target Target `json:"host"`
	// 实际连接的IP地址，DNS 失败时为空
	IP     string `json:"ip,omitempty"`
	Port   int    `json:"port"`
	Status Status `json:"status"`
	Banner string `json:"banner,omitempty"`
	// 可读的失败原因
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

// NewProbeResult 创建探测结果
func NewProbeResult(item WorkItem, status Status, cause string) *ProbeResult {
	return &ProbeResult{
		Target: item.Target,
		Port:   item.Port,
		Status: status,
		Error:  cause,
	}
}

// IsOpen 判断端口是否开放
func (r *ProbeResult) IsOpen() bool {
	return r.Status == StatusOpen
}

// MarshalJSON 耗时以秒为单位输出
func (r *ProbeResult) MarshalJSON() ([]byte, error) {
	type alias ProbeResult
	return json.Marshal(&struct {
		*alias
		Duration float64 `json:"duration"`
	}{
		alias:    (*alias)(r),
		Duration: r.Duration.Seconds(),
	})
}
