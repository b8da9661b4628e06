// Package extract 把 themoviedb.org 的 HTML 页面解析为原始字段。
//
// 约束：
// - 所有函数都是纯函数：相同文档 => 相同输出
// - 不做校验、不返回错误：缺失或畸形的片段直接丢弃或留空
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/net/html"
)

// SearchHit 是一张搜索结果卡片解析出的原始字段（全部可选）。
type SearchHit struct {
	Category    mo.Option[string]
	ID          mo.Option[string]
	Title       mo.Option[string]
	ReleaseYear mo.Option[string]
	Description mo.Option[string]
	PosterID    mo.Option[string]
}

// Episode 是季页面里一集的编号与标题（均为原始文本）。
type Episode struct {
	Number string
	Title  string
}

var (
	ietfRE   = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)
	digitsRE = regexp.MustCompile(`\d+`)
	yearRE   = regexp.MustCompile(`\d{4}`)
	posterRE = regexp.MustCompile(`(\w+)\.jpg`)
	seasonRE = regexp.MustCompile(`season/(\d+)`)
)

const (
	// "cn"（粤语）出现在站点 hreflang 里，但不属于 ISO-639-1。
	cantonese  = "cn"
	ampLiteral = "amp;"
)

// Languages 从 <link rel="alternate" hreflang="xx-YY"> 提取站点支持的语言。
//
// iso639=true：截取前两位小写字母，保留首次出现的顺序去重，并排除 "cn"（不属于 ISO-639-1）。
// iso639=false：原样返回 xx-YY 标签，不去重。
func Languages(doc *goquery.Document, iso639 bool) []string {
	out := make([]string, 0, 32)
	doc.Find("link[rel~='alternate']").Each(func(_ int, s *goquery.Selection) {
		tag, ok := s.Attr("hreflang")
		if !ok || !ietfRE.MatchString(tag) {
			return
		}
		if iso639 {
			tag = tag[:2]
			if tag == cantonese {
				return
			}
		}
		out = append(out, tag)
	})
	if iso639 {
		out = lo.Uniq(out)
	}
	return out
}

// Categories 返回搜索页导航里带 id 的 a.search_tab（文档顺序）。
func Categories(doc *goquery.Document) []string {
	out := make([]string, 0, 8)
	doc.Find("a.search_tab").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok {
			out = append(out, id)
		}
	})
	return out
}

// SearchResults 把每个 div.card.v4.tight 解析为一个 SearchHit。
func SearchResults(doc *goquery.Document) []SearchHit {
	out := make([]SearchHit, 0, 20)
	doc.Find("div.card.v4.tight").Each(func(_ int, card *goquery.Selection) {
		out = append(out, searchHit(card))
	})
	return out
}

func searchHit(card *goquery.Selection) SearchHit {
	var hit SearchHit

	title := card.Find("div.title").First()

	if a := title.Find("a").First(); a.Length() > 0 {
		if v, ok := a.Attr("data-media-type"); ok {
			hit.Category = mo.Some(v)
		}
		if href, ok := a.Attr("href"); ok {
			if id := digitsRE.FindString(href); id != "" {
				hit.ID = mo.Some(id)
			}
		}
	}

	if h2 := title.Find("h2").First(); h2.Length() > 0 {
		if text, ok := firstText(h2.Nodes[0]); ok {
			hit.Title = mo.Some(cleanTitle(text))
		}
	}

	if rd := title.Find("span.release_date").First(); rd.Length() > 0 {
		if year := yearRE.FindString(rd.Text()); year != "" {
			hit.ReleaseYear = mo.Some(year)
		}
	}

	if p := card.Find("p").First(); p.Length() > 0 {
		hit.Description = mo.Some(p.Text())
	}

	if img := card.Find("img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			if m := posterRE.FindStringSubmatch(src); len(m) == 2 {
				hit.PosterID = mo.Some(m[1])
			}
		}
	}

	return hit
}

// HasNextPage 判断搜索结果页是否还有下一页（span.page.next）。
func HasNextPage(doc *goquery.Document) bool {
	return doc.Find("span.page.next").Length() > 0
}

// Seasons 从 /tv/<id>/seasons 页面提取季编号（文档顺序，含 "0" 特别篇）。
func Seasons(doc *goquery.Document) []string {
	out := make([]string, 0, 8)
	doc.Find("div.season_wrapper").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("h2 a").First().Attr("href")
		if !ok {
			return
		}
		if m := seasonRE.FindStringSubmatch(href); len(m) == 2 {
			out = append(out, m[1])
		}
	})
	return out
}

// Episodes 从 /tv/<id>/season/<n> 页面提取每集编号与标题。
// 缺少编号或标题的卡片（例如侧栏里的其它 card）直接丢弃。
func Episodes(doc *goquery.Document) []Episode {
	out := make([]Episode, 0, 24)
	doc.Find("div.card").Each(func(_ int, card *goquery.Selection) {
		num := card.Find("span.episode_number").First()
		link := card.Find("div.episode_title a").First()
		if num.Length() == 0 || link.Length() == 0 {
			return
		}
		out = append(out, Episode{
			Number: strings.TrimSpace(num.Text()),
			Title:  strings.ReplaceAll(strings.TrimSpace(link.Text()), ampLiteral, ""),
		})
	})
	return out
}

// cleanTitle 去掉首尾空白并删除字面量 "amp;"。
//
// 注意：这不是实体解码。站点会把 "&" 双重转义成 "&amp;amp;"，解析一次后留下 "&amp;"，
// 删掉 "amp;" 恰好还原出 "&"；标题里真实出现的 "amp;" 也会被删掉，其它实体（&quot; 等）保持原样。
func cleanTitle(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ampLiteral, "")
}

// firstText 返回 n 之下（深度优先）的第一个文本节点内容。
// 标题 h2 里常见 "<h2>Title <span>(Original)</span></h2>"，只取第一个文本片段。
func firstText(n *html.Node) (string, bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			return c.Data, true
		}
		if c.Type == html.ElementNode {
			if s, ok := firstText(c); ok {
				return s, true
			}
		}
	}
	return "", false
}
