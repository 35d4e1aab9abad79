package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"redirect-manager/internal/model"
)

type countingResolver struct {
	calls int
	rules map[string]*model.RuleMatch
}

func (s *countingResolver) Resolve(_ context.Context, path string) (*model.RuleMatch, error) {
	s.calls++
	return s.rules[path], nil
}

func TestCachedResolver_HitSkipsSource(t *testing.T) {
	t.Parallel()

	source := &countingResolver{rules: map[string]*model.RuleMatch{
		"/blog": {Source: "/blog", Destination: "/news", StatusCode: 301},
	}}
	resolver := NewCachedResolver(source, time.Minute)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)
	require.Equal(t, "/news", first.Destination)

	second, err := resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)
	require.Equal(t, "/news", second.Destination)
	require.Equal(t, 1, source.calls)
}

func TestCachedResolver_CachesMisses(t *testing.T) {
	t.Parallel()

	source := &countingResolver{rules: map[string]*model.RuleMatch{}}
	resolver := NewCachedResolver(source, time.Minute)
	ctx := context.Background()

	match, err := resolver.Resolve(ctx, "/nothing")
	require.NoError(t, err)
	require.Nil(t, match)

	match, err = resolver.Resolve(ctx, "/nothing")
	require.NoError(t, err)
	require.Nil(t, match)
	require.Equal(t, 1, source.calls, "a negative answer should be served from cache")
}

func TestCachedResolver_TTLExpiry(t *testing.T) {
	t.Parallel()

	source := &countingResolver{rules: map[string]*model.RuleMatch{
		"/blog": {Source: "/blog", Destination: "/news", StatusCode: 301},
	}}
	resolver := NewCachedResolver(source, 10*time.Millisecond)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
	// The expired entry was replaced, not accumulated.
	require.Equal(t, 1, resolver.Len())
}

func TestCachedResolver_SweepsExpiredEntries(t *testing.T) {
	t.Parallel()

	source := &countingResolver{rules: map[string]*model.RuleMatch{}}
	resolver := NewCachedResolver(source, 5*time.Millisecond)
	ctx := context.Background()

	// Unique-path misses, the shape of scanner traffic.
	for i := 0; i < cacheSweepThreshold; i++ {
		_, err := resolver.Resolve(ctx, fmt.Sprintf("/probe-%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, cacheSweepThreshold, resolver.Len())

	time.Sleep(10 * time.Millisecond)

	// The next insert past the threshold drops every expired entry.
	_, err := resolver.Resolve(ctx, "/one-more")
	require.NoError(t, err)
	require.Equal(t, 1, resolver.Len())
}

func TestCachedResolver_PurgeForcesRefetch(t *testing.T) {
	t.Parallel()

	source := &countingResolver{rules: map[string]*model.RuleMatch{
		"/blog": {Source: "/blog", Destination: "/news", StatusCode: 301},
	}}
	resolver := NewCachedResolver(source, time.Minute)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)
	require.Equal(t, 1, resolver.Len())

	source.rules["/blog"].Destination = "/press"
	resolver.Purge()
	require.Zero(t, resolver.Len())

	match, err := resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)
	require.Equal(t, "/press", match.Destination)
	require.Equal(t, 2, source.calls)
}

func TestCachedResolver_ReturnsCopies(t *testing.T) {
	t.Parallel()

	source := &countingResolver{rules: map[string]*model.RuleMatch{
		"/blog": {Source: "/blog", Destination: "/news", StatusCode: 301},
	}}
	resolver := NewCachedResolver(source, time.Minute)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)
	first.Destination = "mutated"

	second, err := resolver.Resolve(ctx, "/blog")
	require.NoError(t, err)
	require.Equal(t, "/news", second.Destination)
}
