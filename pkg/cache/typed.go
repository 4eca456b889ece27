package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// GetAs returns the value under key as a T. Compressed entries are
// decoded into T; a stored value of another type is reported as absent.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T

	e, ok := c.lookup(key)
	if !ok {
		return zero, false
	}

	if e.compressed {
		var out T
		if err := c.unpack(e.value, &out); err != nil {
			slog.Error("cache get failed", "key", key, "error", err)
			return zero, false
		}
		return out, true
	}

	out, ok := e.value.(T)
	if !ok {
		slog.Warn("cache value type mismatch", "key", key, "want", fmt.Sprintf("%T", zero), "got", fmt.Sprintf("%T", e.value))
		return zero, false
	}
	return out, true
}

// GetOrSet returns the cached value for key, or calls factory, stores its
// result with opts and returns it. Concurrent misses on the same key share
// one factory call. A factory error is returned and nothing is cached.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, factory func(context.Context) (T, error), opts ...Option) (T, error) {
	if v, ok := GetAs[T](c, key); ok {
		return v, nil
	}

	res, err, _ := c.flight.Do(key, func() (any, error) {
		v, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, opts...)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	if res == nil {
		var zero T
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return factory(ctx)
	}
	return v, nil
}

// WithCache wraps fn so that results are memoized under key(arg). opts may
// be nil; when set it supplies per-call options such as tags.
func WithCache[A, R any](c *Cache, fn func(context.Context, A) (R, error), key func(A) string, opts func(A) []Option) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		var o []Option
		if opts != nil {
			o = opts(arg)
		}
		return GetOrSet(ctx, c, key(arg), func(ctx context.Context) (R, error) {
			return fn(ctx, arg)
		}, o...)
	}
}

// WithInvalidation wraps fn so that, after it succeeds, every entry
// carrying one of tags(arg) is dropped. Failed calls invalidate nothing.
func WithInvalidation[A, R any](c *Cache, fn func(context.Context, A) (R, error), tags func(A) []string) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		r, err := fn(ctx, arg)
		if err != nil {
			return r, err
		}
		c.DeleteByTags(tags(arg)...)
		return r, nil
	}
}

// Key builds a cache key from a prefix and the JSON form of args, e.g.
// Key("tenant.Get", "t-1") == `tenant.Get:["t-1"]`.
func Key(prefix string, args ...any) string {
	if len(args) == 0 {
		return prefix
	}
	data, err := json.Marshal(args)
	if err != nil {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprint(a)
		}
		return prefix + ":" + strings.Join(parts, ",")
	}
	return prefix + ":" + string(data)
}
