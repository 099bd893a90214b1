package testutils

import (
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
)

// Socks5Server 无认证的最小 SOCKS5 代理，只支持 CONNECT
type Socks5Server struct {
	listener net.Listener
	requests atomic.Int64
	wg       sync.WaitGroup
}

// StartSocks5Server 在 127.0.0.1 的随机端口上启动代理
func StartSocks5Server() (*Socks5Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Socks5Server{listener: listener}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handle(conn)
			}()
		}
	}()
	return s, nil
}

// URL 返回代理地址
func (s *Socks5Server) URL() string {
	return "socks5://" + s.listener.Addr().String()
}

// Requests 返回收到的 CONNECT 请求数
func (s *Socks5Server) Requests() int {
	return int(s.requests.Load())
}

// Close 关闭代理
func (s *Socks5Server) Close() {
	_ = s.listener.Close()
	s.wg.Wait()
}

func (s *Socks5Server) handle(client net.Conn) {
	defer client.Close()
	// 认证协商: VER NMETHODS METHODS...
	header := make([]byte, 2)
	if _, err := io.ReadFull(client, header); err != nil || header[0] != 5 {
		return
	}
	if _, err := io.ReadFull(client, make([]byte, header[1])); err != nil {
		return
	}
	if _, err := client.Write([]byte{5, 0}); err != nil {
		return
	}
	// 请求: VER CMD RSV ATYP DST.ADDR DST.PORT
	request := make([]byte, 4)
	if _, err := io.ReadFull(client, request); err != nil || request[1] != 1 {
		return
	}
	var host string
	switch request[3] {
	case 1:
		addr := make([]byte, 4)
		if _, err := io.ReadFull(client, addr); err != nil {
			return
		}
		host = net.IP(addr).String()
	case 3:
		size := make([]byte, 1)
		if _, err := io.ReadFull(client, size); err != nil {
			return
		}
		name := make([]byte, size[0])
		if _, err := io.ReadFull(client, name); err != nil {
			return
		}
		host = string(name)
	case 4:
		addr := make([]byte, 16)
		if _, err := io.ReadFull(client, addr); err != nil {
			return
		}
		host = net.IP(addr).String()
	default:
		return
	}
	portBytes := make([]byte, 2)
	if _, err := io.ReadFull(client, portBytes); err != nil {
		return
	}
	s.requests.Add(1)
	address := net.JoinHostPort(host, strconv.Itoa(int(binary.BigEndian.Uint16(portBytes))))

	upstream, err := net.Dial("tcp", address)
	if err != nil {
		// 0x05 connection refused
		_, _ = client.Write([]byte{5, 5, 0, 1, 0, 0, 0, 0, 0, 0})
		return
	}
	defer upstream.Close()
	if _, err := client.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0}); err != nil {
		return
	}
	go func() {
		_, _ = io.Copy(upstream, client)
		_ = upstream.Close()
	}()
	_, _ = io.Copy(client, upstream)
}
