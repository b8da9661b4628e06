package httpx

import (
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultTimeout 是单次 Fetch 的总超时（含重试）。
	DefaultTimeout = 20 * time.Second
	// DefaultRetryMax 是传输层错误的默认重试次数（不含首次尝试）。
	DefaultRetryMax = 2
)

// Transport 把“UA 池 + 代理 + keep-alive 策略 + 有界重试”固化为统一策略。
//
// 约束：
// - 只重试传输层错误（连接失败、连接被重置等）；HTTP 状态码一律原样返回，由 fetch 层分类
// - 只对“可重放”的请求做重试：GET/HEAD 且无 body
// - ctx 取消后立即停止重试
type Transport struct {
	Base http.RoundTripper

	ua *uaPool

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// NewBackOff 为每次 RoundTrip 生成退避策略；nil 时使用 500ms 起步的指数退避。
	NewBackOff func() backoff.BackOff

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var resp *http.Response
	op := func() error {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.pool().random())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		res, err := t.Base.RoundTrip(r)
		if err != nil {
			if req.Context().Err() != nil {
				// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
				return backoff.Permanent(err)
			}
			return err
		}
		resp = res
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(t.backOff(), uint64(max)), req.Context())
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) backOff() backoff.BackOff {
	if t.NewBackOff != nil {
		return t.NewBackOff()
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = DefaultTimeout
	return eb
}

func (t *Transport) pool() *uaPool {
	if t.ua == nil {
		return globalUA
	}
	return t.ua
}

// Options 描述 NewTransport 的网络策略。
type Options struct {
	// ProxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）。
	ProxyURL string
	// RetryMax 小于 0 视为 0。
	RetryMax int
}

// NewTransport 构造页面与图片抓取共用的 RoundTripper。
func NewTransport(opts Options) (*Transport, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	proxyURL := strings.TrimSpace(opts.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	retryMax := opts.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}

	return &Transport{
		Base:              base,
		ua:                globalUA,
		RetryMax:          retryMax,
		DisableKeepAlives: disableKeepAlives,
	}, nil
}

// RandomUserAgent 从内置 UA 池随机取一个浏览器 UA（每个请求调用一次）。
func RandomUserAgent() string {
	return globalUA.random()
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	// 尽量保持 UA 列表短小但多样；站点只看“像不像浏览器”。
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
