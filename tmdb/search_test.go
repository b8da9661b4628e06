package tmdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/tmdbx/fetch"
)

func titles(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}

func TestSearch_FirstPageOnly(t *testing.T) {
	c, stub := newTestClient(t)

	entries, err := c.Search(context.Background(), SearchOptions{Query: "Star Wars"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"Star Wars (1977)",
		"Andor & Friends (2022)",
		"Star Wars: The Clone Wars",
	}, titles(entries))
	require.Equal(t, 1, stub.count(keyPage1))
	require.Zero(t, stub.count(keyPage2))

	first := entries[0]
	require.True(t, first.IsMovie())
	id, _ := first.ID()
	require.Equal(t, "11", id)
	poster, _ := first.PosterID()
	require.Equal(t, posterToken, poster)
	require.Equal(t, DefaultLanguage, first.Language())
	require.Equal(t, "Star Wars (1977) {tmdb-11}", first.PlexName())

	require.True(t, entries[1].IsTV())
}

func TestSearch_RecursiveFollowsNextPage(t *testing.T) {
	c, stub := newTestClient(t)
	ctx := context.Background()

	pageOne, err := c.Search(ctx, SearchOptions{Query: "Star Wars"})
	require.NoError(t, err)

	all, err := c.Search(ctx, SearchOptions{Query: "Star Wars", Recursive: true})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "The Empire Strikes Back (1980)", all[3].String())

	// 第一页结果是递归结果的前缀。
	for i, e := range pageOne {
		require.True(t, e.Equal(all[i]), "第 %d 条不一致：%s vs %s", i, e, all[i])
	}

	// 非递归与递归是不同缓存键，第一页被抓取了两次；第二页只抓一次。
	require.Equal(t, 2, stub.count(keyPage1))
	require.Equal(t, 1, stub.count(keyPage2))

	_, err = c.Search(ctx, SearchOptions{Query: "Star Wars", Recursive: true})
	require.NoError(t, err)
	require.Equal(t, 2, stub.count(keyPage1), "重复的递归搜索应完全命中缓存")
}

func TestSearch_RecursivePageBudget(t *testing.T) {
	c, stub := newTestClient(t)

	entries, err := c.Search(context.Background(), SearchOptions{Query: "Star Wars", Recursive: true, MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Zero(t, stub.count(keyPage2))
}

func TestSearch_StartsFromGivenPage(t *testing.T) {
	c, stub := newTestClient(t)

	entries, err := c.Search(context.Background(), SearchOptions{Query: "Star Wars", Page: 2, Recursive: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Zero(t, stub.count(keyPage1))
}

func TestSearch_MidPaginationFailureFailsWholeCall(t *testing.T) {
	c, stub := newTestClient(t)
	delete(stub.pages, keyPage2)

	entries, err := c.Search(context.Background(), SearchOptions{Query: "Star Wars", Recursive: true})
	require.Error(t, err)
	require.True(t, fetch.IsNotFound(err), "期望 NotFoundError，实际 %v", err)
	require.Nil(t, entries)
}

func TestSearch_ResultsAreCopies(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	entries, err := c.Search(ctx, SearchOptions{Query: "Star Wars"})
	require.NoError(t, err)
	require.NoError(t, entries[0].Set(ctx, FieldTitle, "Mutated"))

	again, err := c.Search(ctx, SearchOptions{Query: "Star Wars"})
	require.NoError(t, err)
	require.Equal(t, "Star Wars (1977)", again[0].String())
}

func TestSearch_InvalidHitFailsSearch(t *testing.T) {
	c, stub := newTestClient(t)
	stub.pages["/search?language=en&page=1&query=pod"] = []byte(`<html><body>
<div class="card v4 tight"><div class="title"><a data-media-type="podcast" href="/podcast/7"><h2>Pod</h2></a></div></div>
</body></html>`)

	_, err := c.Search(context.Background(), SearchOptions{Query: "pod"})
	var ve *ValueError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, FieldCategory, ve.Field)
}

func TestSearch_LanguageThreadedThroughPages(t *testing.T) {
	c, stub := newTestClient(t)
	stub.pages["/search?language=de&page=1&query=Star+Wars"] = stub.pages[keyPage1]
	stub.pages["/search?language=de&page=2&query=Star+Wars"] = stub.pages[keyPage2]

	entries, err := c.Search(context.Background(), SearchOptions{Query: "Star Wars", Language: "de", Recursive: true})
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		require.Equal(t, "de", e.Language())
	}
	require.Equal(t, 1, stub.count(keyHome), "语言校验应只抓取一次首页")
}

func TestSearch_EmptyResults(t *testing.T) {
	c, stub := newTestClient(t)
	stub.pages["/search?language=en&page=1&query=zzzz"] = []byte(`<html><body><p>No results</p></body></html>`)

	entries, err := c.Search(context.Background(), SearchOptions{Query: "zzzz", Recursive: true})
	require.NoError(t, err)
	require.Empty(t, entries)
}
