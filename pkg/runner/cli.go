package runner

import (
	"fmt"
	"os"

	"github.com/projectdiscovery/goflags"
	"github.com/tongchengbin/xport/pkg/input"
	"github.com/tongchengbin/xport/pkg/scanner"
)

// Version 版本信息
const Version = "v0.1.0"

// Banner 程序的banner
var Banner = fmt.Sprintf(`
__  ___ __   ___  _ __| |_
\ \/ / '_ \ / _ \| '__| __|
 >  <| |_) | (_) | |  | |_
/_/\_\ .__/ \___/|_|   \__|
     |_|                   %s
`, Version)

// ParseOptions 解析命令行选项
func ParseOptions() (*Options, error) {
	options := &Options{}

	// 设置版本和banner
	options.Version = Version
	options.Banner = Banner

	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription("XPort - 一个快速的TCP端口扫描和Banner抓取工具")

	// 创建目标参数组
	flagSet.CreateGroup("目标", "目标设置",
		flagSet.StringSliceVarP(&options.Target, "target", "t", goflags.StringSlice{}, "扫描目标: 主机名、IP、IP范围(A-B)或CIDR，可重复指定", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringVarP(&options.TargetFile, "target-file", "l", "", "包含扫描目标的文件，每行一个目标"),
		flagSet.StringVarP(&options.Ports, "ports", "p", "1-1024", "要扫描的端口，例如 22,80,8000-8100"),
		flagSet.StringVar(&options.Preset, "preset", "", "使用端口预设 (common, web)"),
		flagSet.IntVar(&options.MaxHosts, "max-hosts", input.DefaultMaxHosts, "单个范围或CIDR最多展开的主机数，0 表示不限制"),
	)

	// 创建扫描选项组
	flagSet.CreateGroup("扫描", "扫描选项",
		flagSet.IntVarP(&options.Workers, "workers", "c", scanner.DefaultWorkers, "最大并行探测数"),
		flagSet.StringVar(&options.Timeout, "timeout", "1", "连接超时，秒数(可带小数)或时长(如 500ms)"),
		flagSet.StringVarP(&options.BannerTimeout, "banner-timeout", "bt", "", "Banner读取超时，默认与连接超时相同"),
		flagSet.BoolVarP(&options.NoBanner, "no-banner", "nb", false, "不抓取Banner"),
		flagSet.IntVarP(&options.BannerLength, "banner-length", "bl", scanner.DefaultMaxBannerLength, "Banner最大长度"),
		flagSet.StringVarP(&options.Proxy, "proxy", "x", "", "SOCKS5代理，格式: socks5://[user:pass@]host:port"),
	)

	// 创建输出选项组
	flagSet.CreateGroup("输出", "输出选项",
		flagSet.BoolVarP(&options.SaveOpen, "save-open", "so", false, "保存开放端口到CSV(自动命名)"),
		flagSet.StringVarP(&options.OpenOutput, "open-output", "oo", "", "开放端口CSV文件名"),
		flagSet.BoolVarP(&options.SaveAll, "save-all", "sa", false, "保存所有端口结果到CSV(自动命名)"),
		flagSet.StringVarP(&options.AllOutput, "all-output", "ao", "", "完整结果CSV文件名"),
		flagSet.BoolVar(&options.SaveAuto, "save-auto", false, fmt.Sprintf("端口数超过%d时自动保存开放端口", autoSaveThreshold)),
		flagSet.StringVarP(&options.JSONOutput, "json-output", "j", "", "以JSON格式保存完整报告"),
		flagSet.BoolVarP(&options.ShowClosed, "show-closed", "sc", false, "显示关闭、过滤和错误的端口"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "禁用彩色输出"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "显示详细信息"),
		flagSet.BoolVarP(&options.Silent, "silent", "s", false, "静默模式，只输出统计"),
		flagSet.BoolVar(&options.NoProgress, "no-progress", false, "不显示进度条"),
		flagSet.BoolVar(&options.DebugResponse, "debug-resp", false, "打印原始响应数据"),
	)

	// 创建其他选项组
	var versionFlag, examplesFlag bool
	flagSet.CreateGroup("其他", "其他选项",
		flagSet.BoolVar(&versionFlag, "version", false, "显示版本信息"),
		flagSet.BoolVarP(&examplesFlag, "examples", "e", false, "显示使用示例"),
	)

	// 解析命令行参数
	if err := flagSet.Parse(); err != nil {
		return nil, fmt.Errorf("解析命令行参数失败: %v", err)
	}

	// 显示版本信息
	if versionFlag {
		fmt.Printf("XPort 版本: %s\n", Version)
		os.Exit(0)
	}

	// 显示使用示例
	if examplesFlag {
		printExamples()
		os.Exit(0)
	}

	// 位置参数同样作为目标
	options.Target = append(options.Target, flagSet.CommandLine.Args()...)

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// 打印使用示例
func printExamples() {
	examples := `
使用示例:
  # 扫描单个目标的默认端口 (1-1024)
  xport 192.168.1.1

  # 扫描IP范围和CIDR
  xport -t 10.0.0.1-10.0.0.20 -t 192.168.1.0/28 -p 22,80,443

  # 使用端口预设
  xport -t example.com -preset web

  # 从文件加载目标
  xport -l targets.txt -p 1-65535 -c 500 -timeout 0.5

  # 保存开放端口和完整结果
  xport -t 192.168.1.0/24 -so -sa

  # 指定CSV和JSON文件名
  xport -t 192.168.1.1 -oo open.csv -j report.json

  # 显示所有端口状态
  xport -t 127.0.0.1 -p 20-30 -sc

  # 使用SOCKS5代理
  xport -t 10.10.10.10 -x socks5://127.0.0.1:1080
`
	fmt.Println(examples)
}
