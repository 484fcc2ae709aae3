// Package memoize implements the function-result memoization decorator
// spec.md calls out as an external collaborator (§ "Decorator (function
// memoization)"): a thin wrapper around get/set only, deliberately kept
// outside the core engine rather than grown into a second caching policy.
package memoize

import (
	"context"
	"time"
)

// Cache is the subset of Engine's surface the decorator needs.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Wrap returns fn memoized behind c: a call first looks up keyFn(arg) in c,
// returning the cached result on a type-matching hit, and otherwise calls
// fn, caches its result under ttl, and returns it. It never bypasses the
// engine's own eviction or TTL policy — it only calls Get and Set.
func Wrap[A, T any](c Cache, ttl time.Duration, keyFn func(A) string, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		key := keyFn(arg)

		if v, ok, err := c.Get(ctx, key); err == nil && ok {
			if cached, ok := v.(T); ok {
				return cached, nil
			}
		}

		result, err := fn(ctx, arg)
		if err != nil {
			var zero T
			return zero, err
		}

		_ = c.Set(ctx, key, result, ttl)
		return result, nil
	}
}
