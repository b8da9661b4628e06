package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/samber/mo"
)

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return parseHTML(t, string(b))
}

func parseHTML(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		t.Fatalf("解析 HTML 失败：%v", err)
	}
	return doc
}

// optionComparer 让 cmp 能比较 mo.Option（内部字段未导出）。
var optionComparer = cmp.Comparer(func(a, b mo.Option[string]) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	return aok == bok && av == bv
})

func TestLanguages_ISO639(t *testing.T) {
	got := Languages(loadFixture(t, "home.html"), true)
	want := []string{"en", "de", "fr", "ja", "pt", "zh"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ISO-639 语言不一致（-want +got）：\n%s", diff)
	}
}

func TestLanguages_IETF(t *testing.T) {
	got := Languages(loadFixture(t, "home.html"), false)
	want := []string{"en-US", "de-DE", "de-AT", "fr-FR", "cn-CN", "ja-JP", "pt-BR", "pt-PT", "zh-TW"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("IETF 标签不一致（-want +got）：\n%s", diff)
	}
}

func TestLanguages_EmptyDocument(t *testing.T) {
	doc := parseHTML(t, "<html><head></head><body></body></html>")
	if got := Languages(doc, true); len(got) != 0 {
		t.Fatalf("期望空列表，实际 %v", got)
	}
}

func TestCategories(t *testing.T) {
	got := Categories(loadFixture(t, "search.html"))
	want := []string{"movie", "tv", "person", "collection", "company", "keyword", "network"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("分类不一致（-want +got）：\n%s", diff)
	}
}

func TestSearchResults_FirstPage(t *testing.T) {
	doc := loadFixture(t, "search_p1.html")
	got := SearchResults(doc)
	want := []SearchHit{
		{
			Category:    mo.Some("movie"),
			ID:          mo.Some("11"),
			Title:       mo.Some("Star Wars"),
			ReleaseYear: mo.Some("1977"),
			Description: mo.Some("Princess Leia is captured and held hostage by the evil Imperial forces in their effort to take over the galactic Empire."),
			PosterID:    mo.Some("6FfCtAuVAW8XJjZ7eWeLibRLWTw"),
		},
		{
			Category:    mo.Some("tv"),
			ID:          mo.Some("83867"),
			Title:       mo.Some("Andor & Friends"),
			ReleaseYear: mo.Some("2022"),
			Description: mo.Some("The prequel series to Rogue One."),
			PosterID:    mo.None[string](),
		},
		{
			Category:    mo.Some("movie"),
			ID:          mo.Some("12180"),
			Title:       mo.Some("Star Wars: The Clone Wars"),
			ReleaseYear: mo.None[string](),
			Description: mo.None[string](),
			PosterID:    mo.Some("xZp2Xg9wNsS0sl4lX0A6GJTeV5Y"),
		},
	}
	if diff := cmp.Diff(want, got, optionComparer); diff != "" {
		t.Fatalf("搜索结果不一致（-want +got）：\n%s", diff)
	}
	if !HasNextPage(doc) {
		t.Fatalf("期望第一页有下一页")
	}
}

func TestSearchResults_LastPage(t *testing.T) {
	doc := loadFixture(t, "search_p2.html")
	got := SearchResults(doc)
	if len(got) != 1 {
		t.Fatalf("期望 1 条结果，实际 %d", len(got))
	}
	if id, _ := got[0].ID.Get(); id != "1891" {
		t.Fatalf("期望 id=1891，实际 %q", id)
	}
	if HasNextPage(doc) {
		t.Fatalf("最后一页不应有下一页")
	}
}

func TestSearchResults_NoResults(t *testing.T) {
	doc := parseHTML(t, `<html><body><section class="panel"><p>There are no movies that matched your query.</p></section></body></html>`)
	if got := SearchResults(doc); len(got) != 0 {
		t.Fatalf("期望空结果，实际 %d 条", len(got))
	}
	if HasNextPage(doc) {
		t.Fatalf("空结果页不应有下一页")
	}
}

func TestSearchResults_MalformedCardKeepsNothing(t *testing.T) {
	doc := parseHTML(t, `<div class="card v4 tight"><div class="title"><a href="/collection/abc"></a></div><img src="/t/p/w94/poster.png"></div>`)
	got := SearchResults(doc)
	if len(got) != 1 {
		t.Fatalf("期望 1 张卡片，实际 %d", len(got))
	}
	hit := got[0]
	for name, opt := range map[string]mo.Option[string]{
		"category": hit.Category, "id": hit.ID, "title": hit.Title,
		"release_year": hit.ReleaseYear, "description": hit.Description, "poster_id": hit.PosterID,
	} {
		if opt.IsPresent() {
			t.Fatalf("期望 %s 缺失，实际 %v", name, opt.OrEmpty())
		}
	}
}

func TestCleanTitle_AmpQuirk(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "  Fast &amp; Furious ", want: "Fast & Furious"},
		{in: "Tramp; Story", want: "Tr Story"},
		{in: "Say &quot;Hi&quot;", want: "Say &quot;Hi&quot;"},
		{in: "Plain", want: "Plain"},
	}
	for _, tc := range cases {
		if got := cleanTitle(tc.in); got != tc.want {
			t.Fatalf("cleanTitle(%q) 期望 %q，实际 %q", tc.in, tc.want, got)
		}
	}
}

func TestSearchResults_DoubleEscapedQuote(t *testing.T) {
	doc := parseHTML(t, `<div class="card v4 tight"><div class="title"><a data-media-type="movie" href="/movie/5"><h2>The &amp;quot;Best&amp;quot; Movie</h2></a></div></div>`)
	got := SearchResults(doc)
	if title, _ := got[0].Title.Get(); title != "The &quot;Best&quot; Movie" {
		t.Fatalf("期望保留 &quot;，实际 %q", title)
	}
}

func TestSeasons(t *testing.T) {
	got := Seasons(loadFixture(t, "seasons.html"))
	want := []string{"0", "1", "2", "3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("季编号不一致（-want +got）：\n%s", diff)
	}
}

func TestEpisodes(t *testing.T) {
	got := Episodes(loadFixture(t, "episodes.html"))
	want := []Episode{
		{Number: "1", Title: "The Man Trap"},
		{Number: "2", Title: "Charlie X"},
		{Number: "3", Title: "Mudd's Women"},
		{Number: "4", Title: "Kirk & Spock"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("剧集不一致（-want +got）：\n%s", diff)
	}
}

func TestExtractors_Deterministic(t *testing.T) {
	doc := loadFixture(t, "search_p1.html")
	a := SearchResults(doc)
	b := SearchResults(doc)
	if diff := cmp.Diff(a, b, optionComparer); diff != "" {
		t.Fatalf("同一文档两次解析结果不同：\n%s", diff)
	}
}
