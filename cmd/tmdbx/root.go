package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/tmdbx/fetch"
	"github.com/John-Robertt/tmdbx/internal/config"
	"github.com/John-Robertt/tmdbx/memo"
	"github.com/John-Robertt/tmdbx/tmdb"
)

// app 是一次命令执行的共享状态：配置在 PersistentPreRunE 里加载一次。
type app struct {
	out    io.Writer
	errOut io.Writer

	cli    config.CLIArgs
	eff    config.EffectiveConfig
	log    *logrus.Logger
	client *tmdb.Client
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "错误：%v\n", err)
		if code := config.Code(err); code != "" {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout, errOut: stderr}

	root := &cobra.Command{
		Use:           "tmdbx",
		Short:         "从 themoviedb.org 的公开页面查询电影与剧集",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cli.ConfigPath, "config", "", "配置文件路径（默认读取 cwd 下的 "+config.FileName+"，可选）")
	pf.StringVar(&a.cli.BaseURL, "base-url", "", "站点根地址（默认 "+fetch.DefaultBaseURL+"）")
	pf.StringVar(&a.cli.ProxyURL, "proxy", "", "HTTP 代理地址")
	pf.StringVar(&a.cli.Language, "language", "", "ISO-639-1 语言代码（默认 en）")
	pf.IntVar(&a.cli.MaxPages, "max-pages", 0, "递归搜索的最大页数（默认 10）")
	pf.StringVar(&a.cli.LogLevel, "log-level", "", "日志级别：debug|info|warn|error")

	root.AddCommand(
		newLanguagesCmd(a),
		newCategoriesCmd(a),
		newSearchCmd(a),
		newSeasonsCmd(a),
		newEpisodesCmd(a),
		newPosterCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	a.cli.BaseURLSet = flags.Changed("base-url")
	a.cli.ProxyURLSet = flags.Changed("proxy")
	a.cli.LanguageSet = flags.Changed("language")
	a.cli.MaxPagesSet = flags.Changed("max-pages")
	a.cli.LogLevelSet = flags.Changed("log-level")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}
	eff, err := config.LoadEffective(cwd, a.cli)
	if err != nil {
		return err
	}
	a.eff = eff
	a.log = newLogger(eff.LogLevel, a.errOut)
	if eff.ConfigPath != "" {
		a.log.WithField("path", eff.ConfigPath).Debug("已加载配置文件")
	}

	f, err := fetch.New(fetch.Options{
		BaseURL:  eff.BaseURL,
		ProxyURL: eff.ProxyURL,
		Timeout:  eff.Timeout,
		RetryMax: eff.RetryMax,
		Logger:   a.log,

		RequestsPerSecond: eff.RequestsPerSecond,
	})
	if err != nil {
		return err
	}

	// 一次命令就是一个进程生命周期，独立缓存即可。
	a.client, err = tmdb.New(
		tmdb.WithFetcher(f),
		tmdb.WithCache(memo.New()),
		tmdb.WithLogger(a.log),
	)
	return err
}

func newLogger(level logrus.Level, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(level)
	return logger
}
