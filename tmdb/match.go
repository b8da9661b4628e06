package tmdb

import (
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
)

// BestMatch 从候选里挑出标题与 title 编辑距离最小的条目。
//
// 约束：
// - year 非空且存在同年份候选时，只在同年份候选里挑
// - 没有标题的候选不参与；距离相同时保留靠前的（搜索结果的相关度顺序）
func BestMatch(entries []*Entry, title, year string) (*Entry, bool) {
	candidates := lo.Filter(entries, func(e *Entry, _ int) bool {
		if e == nil {
			return false
		}
		_, ok := e.Title()
		return ok
	})
	if year != "" {
		sameYear := lo.Filter(candidates, func(e *Entry, _ int) bool {
			y, ok := e.ReleaseYear()
			return ok && y == year
		})
		if len(sameYear) > 0 {
			candidates = sameYear
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	want := normalizeTitle(title)
	distance := func(e *Entry) int {
		t, _ := e.Title()
		return levenshtein.Distance(want, normalizeTitle(t))
	}
	return lo.MinBy(candidates, func(a, b *Entry) bool {
		return distance(a) < distance(b)
	}), true
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
