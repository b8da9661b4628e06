// Package fetch 是抓取 themoviedb.org 页面与图片的网络边界。
//
// 核心层只依赖 Fetcher 接口；HTTPFetcher 是默认实现（resty + httpx.Transport）。
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/John-Robertt/tmdbx/internal/infra/httpx"
)

// DefaultBaseURL 是站点根地址；所有 path 都拼在它后面。
const DefaultBaseURL = "https://www.themoviedb.org"

var tracer = otel.Tracer("tmdbx/fetch")

// Fetcher 对一个 path + query 发起 GET 并返回完整 payload。
//
// 约束：
// - query 是已编码的查询串（不带 '?'），为空时不拼 '?'
// - stream=true 用于二进制图片下载（边读边收，不做文本处理）
// - 404 返回 *NotFoundError；其它失败返回 *TransportError
type Fetcher interface {
	Fetch(ctx context.Context, path, query string, stream bool) ([]byte, error)
}

// Image 以 stream 模式下载图片。
func Image(ctx context.Context, f Fetcher, path string) ([]byte, error) {
	if f == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	return f.Fetch(ctx, path, "", true)
}

// Options 描述 HTTPFetcher 的可调参数；零值即默认策略。
type Options struct {
	BaseURL  string
	ProxyURL string
	Timeout  time.Duration
	RetryMax int
	Logger   *logrus.Logger

	// RequestsPerSecond > 0 时对所有请求限速（burst=1）；0 表示不限速。
	RequestsPerSecond float64
}

// HTTPFetcher 是 Fetcher 的 HTTP 实现。每个请求随机 UA，不做缓存。
type HTTPFetcher struct {
	baseURL string
	http    *resty.Client
	log     *logrus.Logger
}

func New(opts Options) (*HTTPFetcher, error) {
	base, err := cleanBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	tr, err := httpx.NewTransport(httpx.Options{ProxyURL: opts.ProxyURL, RetryMax: opts.RetryMax})
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = httpx.DefaultTimeout
	}

	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	client := resty.New()
	client.SetTransport(tr)
	client.SetTimeout(timeout)
	// resty 默认会写入自己的 UA；这里在请求中间件里换成浏览器 UA（每请求随机）。
	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader("User-Agent", httpx.RandomUserAgent())
		return nil
	})

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return limiter.Wait(r.Context())
		})
	}

	return &HTTPFetcher{baseURL: base, http: client, log: log}, nil
}

// BaseURL 返回规范化后的站点根地址（无末尾 '/'）。
func (f *HTTPFetcher) BaseURL() string { return f.baseURL }

func (f *HTTPFetcher) Fetch(ctx context.Context, path, query string, stream bool) ([]byte, error) {
	u := f.url(path, query)

	ctx, span := tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("url", u),
		attribute.Bool("stream", stream),
	))
	defer span.End()

	res, err := f.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(stream).
		Get(u)
	if err != nil {
		if res != nil && res.RawBody() != nil {
			_ = res.RawBody().Close()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		f.log.WithFields(logrus.Fields{"url": u, "err": err}).Debug("GET 失败")
		return nil, &TransportError{URL: u, Err: err}
	}

	var body io.ReadCloser
	if stream {
		body = res.RawBody()
		if body != nil {
			defer body.Close()
		}
	}

	status := res.StatusCode()
	span.SetAttributes(attribute.Int("status", status))
	f.log.WithFields(logrus.Fields{"url": u, "status": status, "stream": stream}).Debug("GET")

	if status == http.StatusNotFound {
		span.SetStatus(codes.Error, "not found")
		return nil, &NotFoundError{URL: u}
	}
	// 2xx/3xx 都算成功：重定向已由 resty 跟随，剩下的 3xx 也按“有响应”处理。
	if status >= 400 {
		span.SetStatus(codes.Error, "bad status")
		return nil, &TransportError{URL: u, StatusCode: status}
	}

	if !stream {
		return res.Body(), nil
	}
	if body == nil {
		return nil, &TransportError{URL: u, Err: errors.New("响应 body 为空")}
	}
	b, err := io.ReadAll(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body failed")
		return nil, &TransportError{URL: u, StatusCode: status, Err: err}
	}
	return b, nil
}

func (f *HTTPFetcher) url(path, query string) string {
	u := f.baseURL + path
	if query != "" {
		u += "?" + query
	}
	return u
}

func cleanBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBaseURL, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.New("base_url 无效：" + raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("base_url 必须是 http/https：" + raw)
	}
	return strings.TrimRight(raw, "/"), nil
}
