package tmdb

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/John-Robertt/tmdbx/internal/extract"
)

// DefaultMaxPages 是递归搜索的默认页数上限。
const DefaultMaxPages = 10

// SearchOptions 描述一次搜索。零值字段取默认值：Page=1、Language="en"、MaxPages=10。
type SearchOptions struct {
	Query     string
	Page      int
	Language  string
	Recursive bool
	MaxPages  int
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.MaxPages == 0 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// Search 按标题（原名、译名、别名）搜索电影与剧集。
//
// 约束：
// - Recursive=false 只返回第 Page 页
// - Recursive=true 时沿 "下一页" 继续，最多 MaxPages 页；结果按页序、页内文档序拼接，不去重
// - 任意一页失败则整个调用失败，不返回已取得的部分结果
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]*Entry, error) {
	entries, err := c.search(ctx, opts.withDefaults())
	if err != nil {
		return nil, err
	}
	return cloneEntries(entries, c), nil
}

// search 缓存单页（含其后递归部分）的结果；每一步翻页本身也是一次带缓存的调用。
func (c *Client) search(ctx context.Context, o SearchOptions) ([]*Entry, error) {
	key := c.key("search", o.Query, o.Page, o.Language, o.Recursive, o.MaxPages)
	return memoize(ctx, c, key, func(ctx context.Context) ([]*Entry, error) {
		q := url.Values{}
		q.Set("language", o.Language)
		q.Set("page", strconv.Itoa(o.Page))
		q.Set("query", o.Query)

		doc, err := c.document(ctx, "/search", q.Encode())
		if err != nil {
			return nil, err
		}

		hits := extract.SearchResults(doc)
		out := make([]*Entry, 0, len(hits))
		for i, h := range hits {
			e, err := c.entryFromHit(ctx, h, o.Language)
			if err != nil {
				return nil, errors.Wrapf(err, "第 %d 页第 %d 条搜索结果无效", o.Page, i+1)
			}
			out = append(out, e)
		}

		if o.Recursive && o.MaxPages > 1 && extract.HasNextPage(doc) {
			next := o
			next.Page++
			next.MaxPages--
			rest, err := c.search(ctx, next)
			if err != nil {
				return nil, err
			}
			out = append(out, rest...)
		}

		c.log.WithField("query", o.Query).WithField("page", o.Page).Debugf("搜索结果 %d 条", len(out))
		return out, nil
	})
}

func (c *Client) entryFromHit(ctx context.Context, h extract.SearchHit, language string) (*Entry, error) {
	return c.NewEntry(ctx, Fields{
		FieldCategory:    h.Category,
		FieldID:          h.ID,
		FieldTitle:       h.Title,
		FieldReleaseYear: h.ReleaseYear,
		FieldDescription: h.Description,
		FieldPosterID:    h.PosterID,
		FieldLanguage:    language,
	})
}
