package querycache

import (
	"context"

	"github.com/nullmass/padoracle/pkg/oracle"
)

type cachedTransport struct {
	cache *Cache
	next  oracle.Transport
}

// Wrap returns a transport that consults the cache before querying.
// Cache failures degrade to a plain query; the cache is an optimization
// and never turns a working attack into a broken one.
func (c *Cache) Wrap(next oracle.Transport) oracle.Transport {
	return &cachedTransport{cache: c, next: next}
}

func (t *cachedTransport) Query(ctx context.Context, candidate []byte) (bool, error) {
	verdict, ok, err := t.cache.Get(candidate)
	if err != nil {
		log.Warnf("cache read failed, querying oracle directly: %v", err)
	} else if ok {
		return verdict, nil
	}

	verdict, err = t.next.Query(ctx, candidate)
	if err != nil {
		return false, err
	}
	if err := t.cache.Put(candidate, verdict); err != nil {
		log.Warnf("cache write failed: %v", err)
	}
	return verdict, nil
}

func (t *cachedTransport) SupportsConcurrency() bool {
	ct, ok := t.next.(oracle.ConcurrentTransport)
	return ok && ct.SupportsConcurrency()
}
