package main

import (
	"context"

	"github.com/projectdiscovery/gologger"
	"github.com/tongchengbin/xport/pkg/runner"
)

func main() {
	options, err := runner.ParseOptions()
	if err != nil {
		gologger.Fatal().Msgf("%v", err)
	}

	r, err := runner.New(options)
	if err != nil {
		gologger.Fatal().Msgf("创建扫描器失败: %v", err)
	}
	r.ShowBanner()

	if err := r.Run(context.Background()); err != nil {
		gologger.Fatal().Msgf("扫描失败: %v", err)
	}
}
