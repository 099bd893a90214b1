package testutils

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Rule 请求-响应规则，请求包含 Pattern 时返回 Response
type Rule struct {
	Pattern  []byte
	Response []byte
}

// TestServer 测试用TCP服务器
type TestServer struct {
	listener net.Listener
	address  string
	port     int
	// 连接建立后立即发送的数据
	greeting []byte
	rules    []Rule
	// 读取请求的等待时间
	readTimeout time.Duration
	// 响应延迟
	responseDelay time.Duration
	// 是否保持沉默：接受连接但不发送任何数据
	silent bool

	connCount atomic.Int64
	mu        sync.Mutex
	lastProbe []byte
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewTestServer 创建一个新的测试服务器
func NewTestServer() *TestServer {
	return &TestServer{
		readTimeout: 2 * time.Second,
		stopChan:    make(chan struct{}),
	}
}

// SetGreeting 设置连接建立后立即发送的Banner
func (s *TestServer) SetGreeting(greeting []byte) *TestServer {
	s.greeting = greeting
	return s
}

// AddRule 添加请求-响应规则
func (s *TestServer) AddRule(pattern string, response []byte) *TestServer {
	s.rules = append(s.rules, Rule{Pattern: []byte(pattern), Response: response})
	return s
}

// SetSilent 设置为沉默模式
func (s *TestServer) SetSilent(silent bool) *TestServer {
	s.silent = silent
	return s
}

// SetResponseDelay 设置响应延迟
func (s *TestServer) SetResponseDelay(delay time.Duration) *TestServer {
	s.responseDelay = delay
	return s
}

// Start 在 127.0.0.1 的随机端口上启动服务器
func (s *TestServer) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.address = listener.Addr().String()
	s.wg.Add(1)
	go s.serve()
	return nil
}

func (s *TestServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return
			default:
				continue
			}
		}
		s.connCount.Add(1)
		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer c.Close()
			s.handle(c)
		}(conn)
	}
}

func (s *TestServer) handle(c net.Conn) {
	if s.silent {
		// 保持连接直到客户端关闭或服务器停止
		_ = c.SetReadDeadline(time.Now().Add(s.readTimeout))
		buffer := make([]byte, 1024)
		for {
			if _, err := c.Read(buffer); err != nil {
				return
			}
		}
	}
	if len(s.greeting) > 0 {
		time.Sleep(s.responseDelay)
		_, _ = c.Write(s.greeting)
		return
	}
	_ = c.SetReadDeadline(time.Now().Add(s.readTimeout))
	buffer := make([]byte, 4096)
	n, _ := c.Read(buffer)
	request := buffer[:n]

	s.mu.Lock()
	s.lastProbe = append([]byte(nil), request...)
	s.mu.Unlock()

	for _, rule := range s.rules {
		if bytes.Contains(request, rule.Pattern) {
			time.Sleep(s.responseDelay)
			_ = c.SetWriteDeadline(time.Now().Add(s.readTimeout))
			_, _ = c.Write(rule.Response)
			return
		}
	}
}

// Address 获取测试服务器的地址
func (s *TestServer) Address() string {
	return s.address
}

// Port 获取测试服务器的端口
func (s *TestServer) Port() int {
	return s.port
}

// IP 获取测试服务器的IP
func (s *TestServer) IP() string {
	return "127.0.0.1"
}

// ConnectionCount 获取已接受的连接数
func (s *TestServer) ConnectionCount() int {
	return int(s.connCount.Load())
}

// LastProbe 获取最近接收到的探测数据
func (s *TestServer) LastProbe() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProbe
}

// Stop 停止测试服务器
func (s *TestServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.wg.Wait()
	})
}

// ClosedPort 返回一个当前没有监听的本地端口
func ClosedPort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := listener.Addr().(*net.TCPAddr).Port
	if err := listener.Close(); err != nil {
		return 0, err
	}
	return port, nil
}

// SSHServer 创建一个模拟SSH服务器
func SSHServer() *TestServer {
	return NewTestServer().SetGreeting([]byte("SSH-2.0-OpenSSH_8.2p1 Ubuntu-4ubuntu0.5\r\n"))
}

// FTPServer 创建一个模拟FTP服务器
func FTPServer() *TestServer {
	return NewTestServer().SetGreeting([]byte("220 FTP Server - FileZilla\r\n"))
}

// HTTPServer 创建一个模拟HTTP服务器，只响应HTTP请求
func HTTPServer() *TestServer {
	return NewTestServer().AddRule("HTTP/1.", []byte("HTTP/1.1 200 OK\r\nServer: nginx/1.18.0\r\nContent-Type: text/html\r\n\r\n"))
}

// ANSIServer 创建一个返回带控制字符Banner的服务器
func ANSIServer() *TestServer {
	return NewTestServer().SetGreeting([]byte("\x1b[1;32mWelcome\x1b[0m to \x00router\x07\r\nlogin: "))
}

// SilentServer 创建一个接受连接但不发送数据的服务器
func SilentServer() *TestServer {
	return NewTestServer().SetSilent(true)
}
