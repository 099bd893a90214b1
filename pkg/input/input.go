package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider 定义了目标表达式的输入提供者接口
type Provider interface {
	// Count 返回输入项的总数
	Count() int
	// Scan 遍历所有输入项，callback 返回 false 时停止
	Scan(callback func(expr string) bool)
	// Close 关闭输入提供者
	Close()
}

// SimpleInputProvider 是一个基于内存列表的输入提供者
type SimpleInputProvider struct {
	inputs []string
}

// NewSimpleInputProvider 创建一个新的简单输入提供者，忽略空白项
func NewSimpleInputProvider(inputs []string) *SimpleInputProvider {
	provider := &SimpleInputProvider{}
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		provider.inputs = append(provider.inputs, input)
	}
	return provider
}

// Count 返回输入项的总数
func (s *SimpleInputProvider) Count() int {
	return len(s.inputs)
}

// Scan 扫描所有输入项
func (s *SimpleInputProvider) Scan(callback func(expr string) bool) {
	for _, input := range s.inputs {
		if !callback(input) {
			break
		}
	}
}

// Close 简单实现不需要关闭任何资源
func (s *SimpleInputProvider) Close() {}

// MultiInputProvider 组合多个输入提供者
type MultiInputProvider struct {
	providers []Provider
	count     int
}

// NewMultiInputProvider 创建一个新的多输入提供者
func NewMultiInputProvider(providers ...Provider) *MultiInputProvider {
	count := 0
	for _, provider := range providers {
		count += provider.Count()
	}
	return &MultiInputProvider{
		providers: providers,
		count:     count,
	}
}

// Count 返回输入项的总数
func (m *MultiInputProvider) Count() int {
	return m.count
}

// Scan 依次扫描所有提供者
func (m *MultiInputProvider) Scan(callback func(expr string) bool) {
	stopped := false
	for _, provider := range m.providers {
		if stopped {
			return
		}
		provider.Scan(func(expr string) bool {
			if !callback(expr) {
				stopped = true
				return false
			}
			return true
		})
	}
}

// Close 关闭所有提供者
func (m *MultiInputProvider) Close() {
	for _, provider := range m.providers {
		provider.Close()
	}
}

// CreateProvider 从命令行目标和目标文件创建输入提供者
func CreateProvider(targets []string, targetFile string) (Provider, error) {
	var providers []Provider
	if simple := NewSimpleInputProvider(targets); simple.Count() > 0 {
		providers = append(providers, simple)
	}
	if targetFile != "" {
		absPath, err := filepath.Abs(targetFile)
		if err != nil {
			return nil, fmt.Errorf("无法获取目标文件的绝对路径: %w", err)
		}
		fileInfo, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("无法获取目标文件信息: %w", err)
		}
		if fileInfo.IsDir() {
			return nil, fmt.Errorf("目标文件不能是目录: %s", absPath)
		}
		fileProvider, err := NewFileInputProvider(absPath)
		if err != nil {
			return nil, fmt.Errorf("无法创建文件输入提供者: %w", err)
		}
		providers = append(providers, fileProvider)
	}
	switch len(providers) {
	case 0:
		return nil, errors.New("未指定任何扫描目标")
	case 1:
		return providers[0], nil
	default:
		return NewMultiInputProvider(providers...), nil
	}
}

// Collect 读取提供者中的所有表达式
func Collect(provider Provider) []string {
	exprs := make([]string, 0, provider.Count())
	provider.Scan(func(expr string) bool {
		exprs = append(exprs, expr)
		return true
	})
	return exprs
}
