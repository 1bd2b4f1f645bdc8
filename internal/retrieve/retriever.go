// Package retrieve implements the context retriever contract: given a
// statement string, return a block of supporting evidence text, or an empty
// string when nothing was found. "No result" is never an error.
package retrieve

import (
	"context"
	"time"

	"github.com/hallusearch/hallusearch/internal/cache"
)

// Retriever fetches supporting evidence text for a statement
type Retriever interface {
	Retrieve(ctx context.Context, statement string) (string, error)
}

// NullRetriever returns no evidence for every statement. Used for offline
// runs, where verification degrades to neutral output.
type NullRetriever struct{}

// Retrieve always reports no evidence
func (NullRetriever) Retrieve(context.Context, string) (string, error) {
	return "", nil
}

// CachedRetriever wraps a retriever with a context cache
type CachedRetriever struct {
	inner Retriever
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedRetriever creates a caching wrapper around inner
func NewCachedRetriever(inner Retriever, c cache.Cache, ttl time.Duration) *CachedRetriever {
	return &CachedRetriever{inner: inner, cache: c, ttl: ttl}
}

// Retrieve returns the cached context when present, otherwise delegates and
// stores the result. Empty results are cached too: a statement with no
// evidence today does not warrant a new search per record.
func (r *CachedRetriever) Retrieve(ctx context.Context, statement string) (string, error) {
	key := cache.Key(statement)
	if val, found := r.cache.Get(key); found {
		return string(val), nil
	}

	evidence, err := r.inner.Retrieve(ctx, statement)
	if err != nil {
		return "", err
	}

	_ = r.cache.Set(key, []byte(evidence), r.ttl)
	return evidence, nil
}
