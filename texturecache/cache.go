// Package texturecache deduplicates and memoizes texture image loads. It is
// the foundation the material applicator and render engine rely on for
// texture bytes: every URL is fetched at most once per process lifetime,
// concurrent requests for the same URL coalesce onto a single in-flight
// fetch, and explicit Clear is the only eviction path. There is no TTL and
// no size bound; texture sets are small and bounded by the material
// library.
package texturecache

import (
	"context"
	"image"
	"sync"

	"go.uber.org/zap"

	"planforge/logging"
)

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	// Hits counts loads answered from a settled cache entry.
	Hits int64

	// Misses counts loads that started a new fetch.
	Misses int64

	// Coalesced counts loads that joined an in-flight fetch instead of
	// issuing their own.
	Coalesced int64

	// Entries is the number of cached images.
	Entries int
}

// entry is one per-URL load slot. ready closes once the fetch settles.
type entry struct {
	ready chan struct{}
	img   image.Image
	err   error
}

// Cache memoizes texture loads by URL. Safe for concurrent use; duplicate
// concurrent loads of the same URL coalesce onto one fetch.
type Cache struct {
	fetcher Fetcher
	logger  *logging.Logger

	mu        sync.Mutex
	entries   map[string]*entry
	hits      int64
	misses    int64
	coalesced int64
}

// NewCache creates a Cache backed by the given fetcher.
func NewCache(fetcher Fetcher, logger *logging.Logger) *Cache {
	if logger != nil {
		logger = logger.Named("texturecache")
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Load returns the image at the given URL, fetching it on first use. A
// concurrent second call for the same URL awaits the in-progress fetch
// rather than issuing a duplicate. Failed fetches are not memoized; the
// next Load for that URL retries. The cache never substitutes placeholders
// for failures; callers decide.
func (c *Cache) Load(ctx context.Context, url string) (image.Image, error) {
	c.mu.Lock()
	if e, ok := c.entries[url]; ok {
		select {
		case <-e.ready:
			c.hits++
		default:
			c.coalesced++
		}
		c.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return e.img, e.err
	}

	e := &entry{ready: make(chan struct{})}
	c.entries[url] = e
	c.misses++
	c.mu.Unlock()

	img, err := c.fetcher.Fetch(ctx, url)
	e.img, e.err = img, err
	close(e.ready)

	if err != nil {
		// Drop the failed slot so a later Load can retry the URL.
		c.mu.Lock()
		if c.entries[url] == e {
			delete(c.entries, url)
		}
		c.mu.Unlock()

		if c.logger != nil {
			c.logger.Warn("texture load failed", zap.String("url", url), zap.Error(err))
		}
		return nil, err
	}

	if c.logger != nil {
		bounds := img.Bounds()
		c.logger.Debug("texture loaded",
			zap.String("url", url),
			zap.Int("width", bounds.Dx()),
			zap.Int("height", bounds.Dy()))
	}
	return img, nil
}

// BatchResult is the settled outcome for one URL in a LoadBatch call.
type BatchResult struct {
	URL   string
	Image image.Image
	Err   error
}

// LoadBatch loads a set of URLs in parallel and returns only once all have
// settled. Result order matches input order. Individual failures do not
// abort the batch.
func (c *Cache) LoadBatch(ctx context.Context, urls []string) []BatchResult {
	results := make([]BatchResult, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			img, err := c.Load(ctx, url)
			results[i] = BatchResult{URL: url, Image: img, Err: err}
		}(i, url)
	}
	wg.Wait()

	return results
}

// Clear drops every cached entry. In-flight fetches complete but their
// results are discarded from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("texture cache cleared")
	}
}

// Stats returns a snapshot of cache activity. Entries counts settled
// successful loads plus in-flight fetches.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Coalesced: c.coalesced,
		Entries:   len(c.entries),
	}
}
