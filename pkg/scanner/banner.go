package scanner

import (
	"context"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/projectdiscovery/gologger"
	"github.com/tongchengbin/xport/pkg/utils"
)

// bannerBufferSize 单次读取的缓冲区大小
const bannerBufferSize = 2048

// PortRequest 连接建立后需要主动发送的探测数据，未列出的端口只被动读取
var PortRequest = map[int]string{
	21:   "QUIT\r\n",
	22:   "\r\n",
	25:   "HELO example.com\r\n",
	80:   "HEAD / HTTP/1.0\r\n\r\n",
	110:  "QUIT\r\n",
	143:  "\r\n",
	443:  "HEAD / HTTP/1.0\r\n\r\n",
	3306: "\r\n",
	8000: "HEAD / HTTP/1.0\r\n\r\n",
	8008: "HEAD / HTTP/1.0\r\n\r\n",
	8080: "HEAD / HTTP/1.0\r\n\r\n",
}

var (
	// ANSI CSI/OSC 转义序列
	ansiRegexp = regexp2.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)?|\x1b[@-Z\\-_]`, regexp2.None)
	// C0/C1 控制字符
	controlRegexp = regexp2.MustCompile(`[\x00-\x1f\x7f\u0080-\u009f]`, regexp2.None)
)

// BannerGrabber 在已建立的连接上读取服务Banner
type BannerGrabber struct {
	Timeout   time.Duration
	MaxLength int
	Requests  map[int]string
	Debug     bool
}

// NewBannerGrabber 根据扫描选项创建Banner抓取器
func NewBannerGrabber(options *ScanOptions) *BannerGrabber {
	return &BannerGrabber{
		Timeout:   options.BannerTimeout(),
		MaxLength: options.MaxBannerLength,
		Requests:  PortRequest,
		Debug:     options.DebugResponse,
	}
}

// Grab 读取一次响应并返回清理后的首行，任何读写失败都返回空字符串
func (g *BannerGrabber) Grab(ctx context.Context, conn net.Conn, port int) string {
	_ = conn.SetDeadline(time.Now().Add(g.Timeout))
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if request, ok := g.Requests[port]; ok && request != "" {
		if _, err := conn.Write([]byte(request)); err != nil {
			gologger.Debug().Msgf("write probe to %s failed: %v", conn.RemoteAddr(), err)
			return ""
		}
	}
	buffer := make([]byte, bannerBufferSize)
	n, err := conn.Read(buffer)
	if n == 0 {
		if err != nil {
			gologger.Debug().Msgf("read banner from %s: %v", conn.RemoteAddr(), err)
		}
		return ""
	}
	if g.Debug {
		gologger.Print().Msgf("Read (%d bytes) from %s:\n%s", n, conn.RemoteAddr(), utils.FormatBytes(buffer[:n]))
	}
	return Sanitize(buffer[:n], g.MaxLength)
}

// Sanitize 将原始响应转换为单行可打印文本，最多保留 maxLength 个字符
func Sanitize(raw []byte, maxLength int) string {
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	text = replaceAll(ansiRegexp, text, "")
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(line, "\t", " ")
		line = strings.TrimSpace(replaceAll(controlRegexp, line, ""))
		if line == "" {
			continue
		}
		return truncateRunes(line, maxLength)
	}
	return ""
}

func replaceAll(re *regexp2.Regexp, input, replacement string) string {
	out, err := re.Replace(input, replacement, -1, -1)
	if err != nil {
		return input
	}
	return out
}

func truncateRunes(s string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxLength]))
}
