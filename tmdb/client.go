// Package tmdb 把 themoviedb.org 的公开页面整理为经过校验的条目。
//
// 约束：
// - 所有依赖网络的查询都经过 memo 缓存：相同参数在进程内只抓取一次
// - 返回给调用方的切片与 Entry 都是副本，修改它们不会影响缓存
// - 核心层不重试、不加超时；这些由 fetch.Fetcher 负责
package tmdb

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"slices"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/tmdbx/fetch"
	"github.com/John-Robertt/tmdbx/internal/extract"
	"github.com/John-Robertt/tmdbx/memo"
)

// Episode 是一集的编号与标题。
type Episode = extract.Episode

// Client 是查询层入口。
type Client struct {
	fetcher fetch.Fetcher
	cache   *memo.Cache
	log     *logrus.Logger

	// scope 区分不同站点的缓存键，见 cacheScope。
	scope string
}

type Option func(*Client)

// WithFetcher 替换默认的 HTTP fetcher（测试里注入 stub）。
func WithFetcher(f fetch.Fetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// WithCache 替换进程级缓存 memo.Default()。
//
// 缓存键带有 fetcher 的作用域：指向同一 BaseURL 的 HTTPFetcher 共享结果，
// 其它 Fetcher 实现按实例隔离。
func WithCache(m *memo.Cache) Option {
	return func(c *Client) { c.cache = m }
}

func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New 创建 Client。未注入 fetcher 时使用 fetch.New 的默认配置。
func New(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	if c.log == nil {
		c.log = logrus.New()
		c.log.SetOutput(os.Stderr)
		c.log.SetLevel(logrus.WarnLevel)
	}
	if c.cache == nil {
		c.cache = memo.Default()
	}
	if c.fetcher == nil {
		f, err := fetch.New(fetch.Options{Logger: c.log})
		if err != nil {
			return nil, err
		}
		c.fetcher = f
	}
	c.scope = cacheScope(c.fetcher)
	return c, nil
}

// cacheScope 返回 fetcher 的缓存作用域：有 BaseURL 的按站点，否则按实例地址。
func cacheScope(f fetch.Fetcher) string {
	if b, ok := f.(interface{ BaseURL() string }); ok {
		return b.BaseURL()
	}
	return fmt.Sprintf("%T@%p", f, f)
}

// key 生成带作用域的缓存键。
func (c *Client) key(op string, args ...any) string {
	return memo.Key(op, append([]any{c.scope}, args...)...)
}

// Languages 返回站点支持的语言。iso639=true 时为两位 ISO-639-1 代码，否则为 xx-YY 标签。
func (c *Client) Languages(ctx context.Context, iso639 bool) ([]string, error) {
	v, err := memoize(ctx, c, c.key("languages", iso639), func(ctx context.Context) ([]string, error) {
		doc, err := c.document(ctx, "", "")
		if err != nil {
			return nil, err
		}
		return extract.Languages(doc, iso639), nil
	})
	return slices.Clone(v), err
}

// Categories 返回搜索页列出的分类（movie、tv、person…）。
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	v, err := memoize(ctx, c, c.key("categories"), func(ctx context.Context) ([]string, error) {
		doc, err := c.document(ctx, "/search", "")
		if err != nil {
			return nil, err
		}
		return extract.Categories(doc), nil
	})
	return slices.Clone(v), err
}

// Seasons 返回剧集的季编号（含 "0" 特别篇，文档顺序）。
func (c *Client) Seasons(ctx context.Context, seriesID string) ([]string, error) {
	v, err := memoize(ctx, c, c.key("seasons", seriesID), func(ctx context.Context) ([]string, error) {
		doc, err := c.document(ctx, fmt.Sprintf("/tv/%s/seasons", url.PathEscape(seriesID)), "")
		if err != nil {
			return nil, err
		}
		return extract.Seasons(doc), nil
	})
	return slices.Clone(v), err
}

// CountSeasons 返回不含特别篇（"0"）的季数。
func (c *Client) CountSeasons(ctx context.Context, seriesID string) (int, error) {
	seasons, err := c.Seasons(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	return len(lo.Without(seasons, "0")), nil
}

// Episodes 返回某一季的剧集列表。language 为空时使用 DefaultLanguage。
func (c *Client) Episodes(ctx context.Context, seriesID, seasonID, language string) ([]Episode, error) {
	if language == "" {
		language = DefaultLanguage
	}
	v, err := memoize(ctx, c, c.key("episodes", seriesID, seasonID, language), func(ctx context.Context) ([]Episode, error) {
		path := fmt.Sprintf("/tv/%s/season/%s", url.PathEscape(seriesID), url.PathEscape(seasonID))
		doc, err := c.document(ctx, path, url.Values{"language": {language}}.Encode())
		if err != nil {
			return nil, err
		}
		return extract.Episodes(doc), nil
	})
	return slices.Clone(v), err
}

// Image 下载二进制图片（不缓存）。
func (c *Client) Image(ctx context.Context, path string) ([]byte, error) {
	return fetch.Image(ctx, c.fetcher, path)
}

func (c *Client) document(ctx context.Context, path, query string) (*goquery.Document, error) {
	b, err := c.fetcher.Fetch(ctx, path, query, false)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "解析页面 %q 失败", path)
	}
	return doc, nil
}

// memoize 在 Client 的缓存上执行 fn；fn 只在未命中时运行。
func memoize[T any](ctx context.Context, c *Client, key string, fn func(context.Context) (T, error)) (T, error) {
	return memo.Do(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		c.log.WithField("key", key).Debug("缓存未命中")
		v, err := fn(ctx)
		if err != nil {
			c.log.WithFields(logrus.Fields{"key": key, "err": err}).Debug("查询失败，不写入缓存")
		}
		return v, err
	})
}
