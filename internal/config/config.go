// Package config 负责 CLI 配置的发现、读取与合并。
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/John-Robertt/tmdbx/fetch"
	"github.com/John-Robertt/tmdbx/internal/infra/httpx"
	"github.com/John-Robertt/tmdbx/tmdb"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名。
	FileName = "tmdbx.json"
	// EnvPrefix 是环境变量前缀：proxy.url => TMDBX_PROXY_URL。
	EnvPrefix = "TMDBX"
)

// 其余默认值（base_url、language、max_pages、timeout、retry_max）沿用 fetch、tmdb 与 httpx 导出的常量。
const DefaultLogLevel = "warn"

var (
	languageRE = regexp.MustCompile(`^[a-z]{2}$`)

	keys = []string{
		"base_url", "proxy.url", "timeout_seconds", "retry_max",
		"requests_per_second", "language", "max_pages", "log_level",
	}
)

// CLIArgs 是 CLI 暴露的参数，并保留“是否显式指定”的信息，
// 这样 --max-pages=0 之类的值也能覆盖配置文件。
type CLIArgs struct {
	ConfigPath string

	BaseURL    string
	BaseURLSet bool

	ProxyURL    string
	ProxyURLSet bool

	Language    string
	LanguageSet bool

	MaxPages    int
	MaxPagesSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 tmdbx.json（以及 TMDBX_* 环境变量）的解析结构。
type FileConfig struct {
	BaseURL           string      `mapstructure:"base_url"`
	Proxy             ProxyConfig `mapstructure:"proxy"`
	TimeoutSeconds    int         `mapstructure:"timeout_seconds"`
	RetryMax          *int        `mapstructure:"retry_max"`
	RequestsPerSecond float64     `mapstructure:"requests_per_second"`
	Language          string      `mapstructure:"language"`
	MaxPages          int         `mapstructure:"max_pages"`
	LogLevel          string      `mapstructure:"log_level"`
}

type ProxyConfig struct {
	URL string `mapstructure:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置，调用方直接消费。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	BaseURL  string
	ProxyURL string
	Timeout  time.Duration
	RetryMax int
	// RequestsPerSecond 为 0 表示不限速。
	RequestsPerSecond float64

	Language string
	MaxPages int
	LogLevel logrus.Level
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/tmdbx.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 TMDBX_* > 配置文件 > 内置默认值。
// timeout_seconds、retry_max 与 requests_per_second 不暴露 CLI 参数。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}

	exists, err := fileExists(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && required {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	fc, err := readFileConfig(cfgPath, exists)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		cfgPath = ""
	}
	return merge(cli, fc, cfgPath)
}

func merge(cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	baseURL := pick(cli.BaseURLSet, cli.BaseURL, fc.BaseURL, fetch.DefaultBaseURL)
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return EffectiveConfig{}, invalid("base_url 无效：%q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return EffectiveConfig{}, invalid("base_url 必须是 http/https：%q", baseURL)
	}

	proxyURL := pick(cli.ProxyURLSet, cli.ProxyURL, fc.Proxy.URL, "")
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, invalid("proxy.url 无效：%w", err)
		}
	}

	timeout := fc.TimeoutSeconds
	if timeout == 0 {
		timeout = int(httpx.DefaultTimeout / time.Second)
	}
	if timeout < 0 {
		return EffectiveConfig{}, invalid("timeout_seconds 不能为负数：%d", timeout)
	}

	retryMax := httpx.DefaultRetryMax
	if fc.RetryMax != nil {
		retryMax = *fc.RetryMax
	}
	if retryMax < 0 {
		return EffectiveConfig{}, invalid("retry_max 不能为负数：%d", retryMax)
	}

	if fc.RequestsPerSecond < 0 {
		return EffectiveConfig{}, invalid("requests_per_second 不能为负数：%v", fc.RequestsPerSecond)
	}

	language := pick(cli.LanguageSet, cli.Language, fc.Language, tmdb.DefaultLanguage)
	if !languageRE.MatchString(language) {
		return EffectiveConfig{}, invalid("language 必须是两位小写 ISO-639-1 代码：%q", language)
	}

	maxPages := fc.MaxPages
	if cli.MaxPagesSet {
		maxPages = cli.MaxPages
	}
	if maxPages == 0 {
		maxPages = tmdb.DefaultMaxPages
	}
	if maxPages < 0 {
		return EffectiveConfig{}, invalid("max_pages 不能为负数：%d", maxPages)
	}

	levelText := pick(cli.LogLevelSet, cli.LogLevel, fc.LogLevel, DefaultLogLevel)
	level, err := logrus.ParseLevel(levelText)
	if err != nil {
		return EffectiveConfig{}, invalid("log_level 无效：%w", err)
	}

	return EffectiveConfig{
		ConfigPath: cfgPath,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ProxyURL:   proxyURL,
		Timeout:    time.Duration(timeout) * time.Second,
		RetryMax:   retryMax,

		RequestsPerSecond: fc.RequestsPerSecond,

		Language: language,
		MaxPages: maxPages,
		LogLevel: level,
	}, nil
}

// pick：CLI 显式指定 > 文件/环境变量（非空）> 默认。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

// readFileConfig 用 viper 读取 JSON 配置文件（exists=false 时只读环境变量）。
func readFileConfig(path string, exists bool) (FileConfig, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return FileConfig{}, err
		}
	}

	if exists {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return FileConfig{}, err
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

func fileExists(path string) (bool, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if st.IsDir() {
		return false, fmt.Errorf("配置路径是目录：%s", path)
	}
	return true, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
