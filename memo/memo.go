// Package memo 是进程内、不过期的查询结果缓存。
//
// 约束：
// - 键由操作名 + 全部参数决定；相同键只会成功执行一次（并发调用通过 singleflight 合并）
// - 一个调用方取消不会让共享同一键的其它调用方失败
// - 只缓存成功结果；失败不写入，下次调用会重新执行
// - 没有淘汰策略，也不做持久化；Reset 仅用于测试或显式清空
package memo

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Cache 是带并发合并的记忆化存储。零值不可用，请用 New。
type Cache struct {
	store *gocache.Cache
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats 是命中统计的快照。
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

func New() *Cache {
	return &Cache{store: gocache.New(gocache.NoExpiration, 0)}
}

var defaultCache = New()

// Default 返回进程级共享缓存。
func Default() *Cache { return defaultCache }

// Key 由操作名与参数生成缓存键。参数用 %#v 渲染，因此 "1" 与 1 是不同的键。
func Key(op string, args ...any) string {
	var b strings.Builder
	b.WriteString(op)
	for _, a := range args {
		b.WriteByte('|')
		fmt.Fprintf(&b, "%#v", a)
	}
	return b.String()
}

// Do 返回 key 对应的缓存值；未命中时执行 fn 并缓存其成功结果。
//
// 约束：
// - 并发的同键调用只会执行一次 fn，其余调用等待并共享结果
// - fn 运行在发起者的 ctx 下；发起者的 ctx 结束导致的失败不会传给 ctx 仍然有效的等待者，
//   等待者会重新发起一次调用
// - 等待期间自己的 ctx 结束时立即返回 ctx.Err()
func Do[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for {
		if v, ok, err := cached[T](c, key); ok || err != nil {
			if ok {
				c.hits.Add(1)
			}
			return v, err
		}

		// leader 只在本次调用自己执行 fn 时为 true。
		leader := false
		ch := c.group.DoChan(key, func() (any, error) {
			leader = true
			// 等待 group 期间可能已有其它调用写入。
			if v, ok, err := cached[T](c, key); ok || err != nil {
				if ok {
					c.hits.Add(1)
				}
				return v, err
			}
			c.misses.Add(1)
			v, err := fn(ctx)
			if err != nil {
				return v, err
			}
			c.store.Set(key, v, gocache.NoExpiration)
			return v, nil
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res = <-ch:
		}

		if res.Err != nil {
			if !leader && isContextErr(res.Err) && ctx.Err() == nil {
				continue
			}
			return zero, res.Err
		}
		out, ok := res.Val.(T)
		if !ok {
			return zero, typeError(key, res.Val)
		}
		return out, nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// cached 读取已缓存的值；同一个键被不同类型复用时返回错误而不是覆盖。
func cached[T any](c *Cache, key string) (T, bool, error) {
	var zero T
	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false, typeError(key, raw)
	}
	return v, true, nil
}

func typeError(key string, v any) error {
	return errors.Errorf("memo: 键 %q 的缓存值类型为 %T", key, v)
}

// Reset 清空全部缓存与统计。
func (c *Cache) Reset() {
	c.store.Flush()
	c.hits.Store(0)
	c.misses.Store(0)
}

func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.store.ItemCount(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
