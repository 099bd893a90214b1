package runner

import "sort"

// Presets 内置端口预设
var Presets = map[string][]int{
	"common": {21, 22, 23, 25, 53, 80, 110, 143, 443, 3306, 3389, 8080},
	"web":    {80, 443, 8000, 8080, 8443},
}

// PresetNames 返回排序后的预设名称
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
