package input

import (
	"encoding/binary"
	"net/netip"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"github.com/tongchengbin/xport/pkg/types"
)

// DefaultMaxHosts 单个表达式允许展开的最大主机数
const DefaultMaxHosts = 65536

// hostnameRegexp 校验 RFC 1123 风格的主机名，总长度不超过253
var hostnameRegexp = regexp2.MustCompile(
	`^(?=.{1,253}\.?$)[A-Za-z0-9_](?:[A-Za-z0-9_-]{0,61}[A-Za-z0-9_])?(?:\.[A-Za-z0-9_](?:[A-Za-z0-9_-]{0,61}[A-Za-z0-9_])?)*\.?$`,
	regexp2.None)

// Expander 将目标表达式展开为具体主机
type Expander struct {
	// 单个范围/CIDR最多展开的主机数，0 表示不限制
	MaxHosts int
}

// NewExpander 创建目标展开器
func NewExpander(maxHosts int) *Expander {
	if maxHosts < 0 {
		maxHosts = 0
	}
	return &Expander{MaxHosts: maxHosts}
}

// Expand 使用默认上限展开目标表达式
func Expand(expr string) ([]types.Target, error) {
	return NewExpander(DefaultMaxHosts).Expand(expr)
}

// ExpandAll 展开多个表达式，结果去重并保持首次出现的顺序
func (e *Expander) ExpandAll(exprs []string) ([]types.Target, error) {
	seen := make(map[string]struct{})
	var targets []types.Target
	for _, expr := range exprs {
		expanded, err := e.Expand(expr)
		if err != nil {
			return nil, err
		}
		for _, target := range expanded {
			key := target.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			targets = append(targets, target)
		}
	}
	return targets, nil
}

// Expand 展开单个目标表达式
// 支持的格式:
//   - 单个主机: "example.com" 或 "192.168.1.5"
//   - 范围: "192.168.1.1-192.168.1.10"
//   - CIDR: "192.168.1.0/28"
func (e *Expander) Expand(expr string) ([]types.Target, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return nil, &types.InvalidTargetError{Input: expr, Reason: "is empty"}
	}
	if strings.ContainsFunc(raw, unicode.IsSpace) {
		return nil, &types.InvalidTargetError{Input: expr, Reason: "contains whitespace"}
	}
	switch {
	case strings.Contains(raw, "/"):
		return e.expandCIDR(raw)
	case strings.Contains(raw, "-") && !strings.ContainsFunc(raw, unicode.IsLetter):
		return e.expandRange(raw)
	default:
		return expandSingle(raw)
	}
}

// expandSingle 单个IP或主机名，不做DNS解析
func expandSingle(raw string) ([]types.Target, error) {
	if addr, err := netip.ParseAddr(raw); err == nil {
		return []types.Target{types.TargetFromAddr(addr)}, nil
	}
	ok, err := hostnameRegexp.MatchString(raw)
	if err != nil || !ok {
		return nil, &types.InvalidTargetError{Input: raw, Reason: "is neither an IP address nor a valid hostname"}
	}
	return []types.Target{types.NewTarget(raw)}, nil
}

// expandRange 展开 A-B 形式的IPv4范围
func (e *Expander) expandRange(raw string) ([]types.Target, error) {
	left, right, _ := strings.Cut(raw, "-")
	start, err := parseIPv4(left)
	if err != nil {
		return nil, &types.InvalidRangeError{Input: raw, Reason: "start " + err.Error()}
	}
	end, err := parseIPv4(right)
	if err != nil {
		return nil, &types.InvalidRangeError{Input: raw, Reason: "end " + err.Error()}
	}
	first, last := ipv4ToUint(start), ipv4ToUint(end)
	if last < first {
		return nil, &types.InvalidRangeError{Input: raw, Reason: "end address is lower than start address"}
	}
	count := uint64(last) - uint64(first) + 1
	if err := e.checkLimit(raw, count); err != nil {
		return nil, err
	}
	return enumerate(first, count), nil
}

// expandCIDR 展开CIDR，包含网络地址和广播地址
func (e *Expander) expandCIDR(raw string) ([]types.Target, error) {
	prefix, err := netip.ParsePrefix(raw)
	if err != nil {
		return nil, &types.InvalidTargetError{Input: raw, Reason: "is not a valid CIDR block"}
	}
	if !prefix.Addr().Is4() {
		return nil, &types.InvalidTargetError{Input: raw, Reason: "only IPv4 CIDR blocks are supported"}
	}
	prefix = prefix.Masked()
	count := uint64(1) << (32 - prefix.Bits())
	if err := e.checkLimit(raw, count); err != nil {
		return nil, err
	}
	return enumerate(ipv4ToUint(prefix.Addr()), count), nil
}

func (e *Expander) checkLimit(raw string, count uint64) error {
	if e.MaxHosts > 0 && count > uint64(e.MaxHosts) {
		return &types.TargetSetTooLargeError{Input: raw, Count: count, Limit: e.MaxHosts}
	}
	return nil
}

type rangeError string

func (r rangeError) Error() string {
	return string(r)
}

func parseIPv4(value string) (netip.Addr, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return netip.Addr{}, rangeError("address is missing")
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}, rangeError("address " + value + " is not a valid IPv4 literal")
	}
	if !addr.Is4() {
		return netip.Addr{}, rangeError("address " + value + " is not IPv4")
	}
	return addr, nil
}

func ipv4ToUint(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uintToIPv4(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// enumerate 从 first 开始按数值升序生成 count 个地址
func enumerate(first uint32, count uint64) []types.Target {
	targets := make([]types.Target, 0, count)
	for i := uint64(0); i < count; i++ {
		targets = append(targets, types.TargetFromAddr(uintToIPv4(first+uint32(i))))
	}
	return targets
}
