package utils

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tongchengbin/xport/pkg/types"
)

const (
	minPort = 1
	maxPort = 65535
)

// ResolvePorts 先按名称查找预设端口列表，找不到时按端口表达式解析
func ResolvePorts(expr string, presets map[string][]int) (types.PortSet, error) {
	name := strings.ToLower(strings.TrimSpace(expr))
	if preset, ok := presets[name]; ok {
		return normalizePorts(expr, preset)
	}
	return ParsePorts(expr)
}

// ParsePorts 解析端口表达式为升序去重的端口集合
// 支持的格式:
//   - 单个端口: "22"
//   - 列表: "22,80,443"
//   - 范围: "1-1024"
//   - 混合: "22,80,8000-8100"
func ParsePorts(expr string) (types.PortSet, error) {
	value := strings.TrimSpace(expr)
	if value == "" {
		return nil, &types.InvalidPortError{Input: expr, Reason: "is empty"}
	}
	var seen [maxPort + 1]bool
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, &types.InvalidPortError{Input: expr, Token: token, Reason: "contains an empty entry"}
		}
		// 处理端口范围 (例如 8080-8090)
		if lo, hi, isRange := strings.Cut(token, "-"); isRange {
			start, err := parsePort(expr, token, lo)
			if err != nil {
				return nil, err
			}
			end, err := parsePort(expr, token, hi)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, &types.InvalidPortError{Input: expr, Token: token, Reason: "has start greater than end"}
			}
			for port := start; port <= end; port++ {
				seen[port] = true
			}
			continue
		}
		// 处理单个端口
		port, err := parsePort(expr, token, token)
		if err != nil {
			return nil, err
		}
		seen[port] = true
	}
	ports := make(types.PortSet, 0)
	for port := minPort; port <= maxPort; port++ {
		if seen[port] {
			ports = append(ports, port)
		}
	}
	return ports, nil
}

// parsePort 只接受十进制数字，拒绝符号和空值
func parsePort(expr, token, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, &types.InvalidPortError{Input: expr, Token: token, Reason: "has a missing bound"}
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return 0, &types.InvalidPortError{Input: expr, Token: token, Reason: "is not a number"}
		}
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < minPort || port > maxPort {
		return 0, &types.InvalidPortError{Input: expr, Token: token, Reason: "is outside 1-65535"}
	}
	return port, nil
}

// normalizePorts 校验预设端口并排序去重
func normalizePorts(name string, ports []int) (types.PortSet, error) {
	if len(ports) == 0 {
		return nil, &types.InvalidPortError{Input: name, Reason: "preset is empty"}
	}
	unique := make(map[int]struct{}, len(ports))
	for _, port := range ports {
		if port < minPort || port > maxPort {
			return nil, &types.InvalidPortError{Input: name, Token: strconv.Itoa(port), Reason: "is outside 1-65535"}
		}
		unique[port] = struct{}{}
	}
	set := make(types.PortSet, 0, len(unique))
	for port := range unique {
		set = append(set, port)
	}
	sort.Ints(set)
	return set, nil
}
