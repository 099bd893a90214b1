package input

import (
	"bufio"
	"os"
	"strings"
)

// FileInputProvider 从文件读取目标表达式，每行一个
type FileInputProvider struct {
	file     *os.File
	filename string
	count    int
}

// NewFileInputProvider 创建一个新的文件输入提供者
func NewFileInputProvider(filename string) (*FileInputProvider, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	provider := &FileInputProvider{
		file:     file,
		filename: filename,
	}
	// 统计有效行数
	provider.Scan(func(string) bool {
		provider.count++
		return true
	})
	return provider, nil
}

// Count 返回有效输入项的总数
func (f *FileInputProvider) Count() int {
	return f.count
}

// Scan 扫描所有输入项，跳过空行和注释行
func (f *FileInputProvider) Scan(callback func(expr string) bool) {
	if _, err := f.file.Seek(0, 0); err != nil {
		return
	}
	scanner := bufio.NewScanner(f.file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !callback(line) {
			break
		}
	}
}

// Close 关闭输入提供者
func (f *FileInputProvider) Close() {
	if f.file != nil {
		_ = f.file.Close()
	}
}
