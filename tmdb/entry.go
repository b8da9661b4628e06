package tmdb

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Field 是 Entry 的字段名。
type Field string

const (
	FieldCategory    Field = "category"
	FieldID          Field = "tmdb_id"
	FieldTitle       Field = "title"
	FieldReleaseYear Field = "release_year"
	FieldDescription Field = "description"
	FieldPosterID    Field = "poster_id"
	FieldLanguage    Field = "language"
)

// DefaultLanguage 是 Entry 与查询的默认语言。缺省时直接采用，不联网校验；显式赋值（包括 "en"）都要校验。
const DefaultLanguage = "en"

const notAvailable = "Not available"

// fieldOrder 决定 NewEntry 的校验顺序，保证相同输入得到相同的首个错误。
var fieldOrder = []Field{
	FieldCategory, FieldID, FieldTitle, FieldReleaseYear,
	FieldDescription, FieldPosterID, FieldLanguage,
}

// Fields 是 NewEntry 的输入。值可以是 nil、string、*string 或 mo.Option[string]。
type Fields map[Field]any

// Entry 是一部电影或一部剧集的条目。
//
// 约束：
// - 除 language 外所有字段都可缺失；language 缺省为 DefaultLanguage
// - 相等性只看 (category, tmdb_id)
// - 显示名由字段推导，不单独存储
type Entry struct {
	category    mo.Option[string]
	id          mo.Option[string]
	title       mo.Option[string]
	releaseYear mo.Option[string]
	description mo.Option[string]
	posterID    mo.Option[string]
	language    string

	c *Client
}

// NewEntry 按固定顺序校验并构造 Entry。
// category 与 language 的校验会触发（带缓存的）网络查询。
func (c *Client) NewEntry(ctx context.Context, fields Fields) (*Entry, error) {
	unknown := lo.Without(lo.Keys(fields), fieldOrder...)
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, &ValueError{Field: unknown[0], Value: fmt.Sprint(fields[unknown[0]]), Reason: "未知字段"}
	}

	e := &Entry{language: DefaultLanguage, c: c}
	for _, f := range fieldOrder {
		v, ok := fields[f]
		if !ok {
			continue
		}
		if err := e.Set(ctx, f, v); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Set 校验并写入一个字段；校验失败时 Entry 保持不变。
// 给 language 赋 nil 会恢复为 DefaultLanguage。
func (e *Entry) Set(ctx context.Context, f Field, v any) error {
	opt, err := optionOf(f, v)
	if err != nil {
		return err
	}
	s, present := opt.Get()

	switch f {
	case FieldCategory:
		if present {
			if err := e.checkMember(ctx, f, s); err != nil {
				return err
			}
		}
		e.category = opt
	case FieldID:
		if present {
			if !isDigits(s) {
				return &ValueError{Field: f, Value: s, Reason: "必须是数字"}
			}
			if s == "0" {
				return &ValueError{Field: f, Value: s, Reason: "必须大于 0"}
			}
		}
		e.id = opt
	case FieldTitle:
		e.title = opt
	case FieldReleaseYear:
		if present && !isDigits(s) {
			return &ValueError{Field: f, Value: s, Reason: "必须是数字"}
		}
		e.releaseYear = opt
	case FieldDescription:
		e.description = opt
	case FieldPosterID:
		e.posterID = opt
	case FieldLanguage:
		if !present {
			e.language = DefaultLanguage
			return nil
		}
		if err := e.checkMember(ctx, f, s); err != nil {
			return err
		}
		e.language = s
	default:
		return &ValueError{Field: f, Value: s, Reason: "未知字段"}
	}
	return nil
}

// checkMember 校验 category/language 是否在站点当前列表中。
func (e *Entry) checkMember(ctx context.Context, f Field, s string) error {
	if e.c == nil {
		return &StateError{Op: "校验 " + string(f), Reason: "Entry 未绑定 Client"}
	}

	var (
		allowed []string
		err     error
	)
	if f == FieldCategory {
		allowed, err = e.c.Categories(ctx)
	} else {
		allowed, err = e.c.Languages(ctx, true)
	}
	if err != nil {
		return err
	}
	if !lo.Contains(allowed, s) {
		return &ValueError{Field: f, Value: s, Reason: fmt.Sprintf("必须是以下之一：%v", allowed)}
	}
	return nil
}

func optionOf(f Field, v any) (mo.Option[string], error) {
	switch x := v.(type) {
	case nil:
		return mo.None[string](), nil
	case string:
		return mo.Some(x), nil
	case *string:
		if x == nil {
			return mo.None[string](), nil
		}
		return mo.Some(*x), nil
	case mo.Option[string]:
		return x, nil
	default:
		return mo.None[string](), &TypeError{Field: f, Got: v}
	}
}

// isDigits 只接受非空的 ASCII 数字串。
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (e *Entry) Category() (string, bool)    { return e.category.Get() }
func (e *Entry) ID() (string, bool)          { return e.id.Get() }
func (e *Entry) Title() (string, bool)       { return e.title.Get() }
func (e *Entry) ReleaseYear() (string, bool) { return e.releaseYear.Get() }
func (e *Entry) Description() (string, bool) { return e.description.Get() }
func (e *Entry) PosterID() (string, bool)    { return e.posterID.Get() }

func (e *Entry) Language() string {
	if e.language == "" {
		return DefaultLanguage
	}
	return e.language
}

// String 返回 "title (year)"、"title" 或 "Not available"。
func (e *Entry) String() string {
	title, ok := e.title.Get()
	if !ok {
		return notAvailable
	}
	year, ok := e.releaseYear.Get()
	if !ok {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, year)
}

// PlexName 是 Plex 命名规范的文件名：有 tmdb_id 时追加 " {tmdb-<id>}"。
func (e *Entry) PlexName() string {
	id, ok := e.id.Get()
	if !ok {
		return e.String()
	}
	return fmt.Sprintf("%s {tmdb-%s}", e.String(), id)
}

// Equal 只比较 (category, tmdb_id)。
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	return sameOption(e.category, o.category) && sameOption(e.id, o.id)
}

func sameOption(a, b mo.Option[string]) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	return aok == bok && av == bv
}

func (e *Entry) IsMovie() bool { return e.category.OrEmpty() == "movie" }
func (e *Entry) IsTV() bool    { return e.category.OrEmpty() == "tv" }

// Seasons 返回该剧集的季编号。
func (e *Entry) Seasons(ctx context.Context) ([]string, error) {
	id, err := e.seriesID("seasons")
	if err != nil {
		return nil, err
	}
	return e.c.Seasons(ctx, id)
}

// Episodes 返回该剧集某一季的剧集，语言沿用 Entry 的 language。
func (e *Entry) Episodes(ctx context.Context, seasonID string) ([]Episode, error) {
	id, err := e.seriesID("episodes")
	if err != nil {
		return nil, err
	}
	return e.c.Episodes(ctx, id, seasonID, e.Language())
}

func (e *Entry) seriesID(op string) (string, error) {
	if !e.IsTV() {
		return "", &StateError{Op: op, Category: e.category.OrEmpty()}
	}
	id, ok := e.id.Get()
	if !ok {
		return "", &StateError{Op: op, Category: "tv", Reason: "缺少 tmdb_id"}
	}
	if e.c == nil {
		return "", &StateError{Op: op, Category: "tv", Reason: "Entry 未绑定 Client"}
	}
	return id, nil
}

func (e *Entry) clone() *Entry {
	cp := *e
	return &cp
}

// cloneEntries 复制缓存里的条目并绑定到 c；缓存可能由共享同一缓存的其它 Client 写入。
func cloneEntries(in []*Entry, c *Client) []*Entry {
	out := make([]*Entry, len(in))
	for i, e := range in {
		out[i] = e.clone()
		out[i].c = c
	}
	return out
}
