package tmdb

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/tmdbx/fetch"
	"github.com/John-Robertt/tmdbx/memo"
)

const (
	keyHome     = "?"
	keySearch   = "/search?"
	keyPage1    = "/search?language=en&page=1&query=Star+Wars"
	keyPage2    = "/search?language=en&page=2&query=Star+Wars"
	keySeasons  = "/tv/253/seasons?"
	keyEpisodes = "/tv/253/season/1?language=en"

	posterToken = "6FfCtAuVAW8XJjZ7eWeLibRLWTw"
)

// stubFetcher 按 path+"?"+query 返回固定 payload，并记录每个键的调用次数。
type stubFetcher struct {
	mu     sync.Mutex
	pages  map[string][]byte
	fail   map[string]error
	calls  map[string]int
	stream map[string]bool
}

func (s *stubFetcher) Fetch(_ context.Context, path, query string, stream bool) ([]byte, error) {
	key := path + "?" + query
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[key]++
	s.stream[key] = stream
	if err, ok := s.fail[key]; ok {
		delete(s.fail, key)
		return nil, err
	}
	b, ok := s.pages[key]
	if !ok {
		return nil, &fetch.NotFoundError{URL: key}
	}
	return b, nil
}

func (s *stubFetcher) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *stubFetcher) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "internal", "extract", "testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func newStub(t *testing.T) *stubFetcher {
	t.Helper()
	s := &stubFetcher{
		pages: map[string][]byte{
			keyHome:     readFixture(t, "home.html"),
			keySearch:   readFixture(t, "search.html"),
			keyPage1:    readFixture(t, "search_p1.html"),
			keyPage2:    readFixture(t, "search_p2.html"),
			keySeasons:  readFixture(t, "seasons.html"),
			keyEpisodes: readFixture(t, "episodes.html"),
		},
		fail:   map[string]error{},
		calls:  map[string]int{},
		stream: map[string]bool{},
	}
	// 海报 payload 直接用分辨率名，方便断言走了哪条路径。
	for dir, body := range map[string]string{
		"original":             "original",
		"w150_and_h225_bestv2": "low",
		"w300_and_h450_bestv2": "medium",
		"w600_and_h900_bestv2": "high",
	} {
		s.pages["/t/p/"+dir+"/"+posterToken+".jpg?"] = []byte(body)
	}
	return s
}

// newTestClient 每个测试使用独立缓存，互不影响。
func newTestClient(t *testing.T) (*Client, *stubFetcher) {
	t.Helper()
	stub := newStub(t)
	c, err := New(WithFetcher(stub), WithCache(memo.New()))
	require.NoError(t, err)
	return c, stub
}
