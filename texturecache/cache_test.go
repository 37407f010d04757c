package texturecache

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingFetcher counts fetches per URL and optionally blocks until
// released, so tests can hold a fetch in flight.
type countingFetcher struct {
	fetches int64
	block   chan struct{}
	err     error
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	atomic.AddInt64(&f.fetches, 1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func TestLoadMemoizesByURL(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCache(fetcher, nil)
	ctx := context.Background()

	first, err := cache.Load(ctx, "https://t.example/a.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := cache.Load(ctx, "https://t.example/a.png")
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}

	if atomic.LoadInt64(&fetcher.fetches) != 1 {
		t.Errorf("fetches = %d, want 1", fetcher.fetches)
	}
	if first != second {
		t.Error("both callers should receive the same cached image")
	}

	stats := cache.Stats()
	if stats.Misses != 1 || stats.Hits != 1 {
		t.Errorf("stats = %+v, want 1 miss / 1 hit", stats)
	}
}

func TestConcurrentLoadsCoalesce(t *testing.T) {
	const callers = 16

	fetcher := &countingFetcher{block: make(chan struct{})}
	cache := NewCache(fetcher, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	images := make([]image.Image, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			images[i], errs[i] = cache.Load(ctx, "https://t.example/shared.png")
		}(i)
	}

	// Let every goroutine reach the cache before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.block)
	wg.Wait()

	if got := atomic.LoadInt64(&fetcher.fetches); got != 1 {
		t.Errorf("fetches = %d, want exactly 1 for %d concurrent callers", got, callers)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if images[i] != images[0] {
			t.Errorf("caller %d received a different image instance", i)
		}
	}
}

func TestFailedLoadsAreRetriable(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("boom")}
	cache := NewCache(fetcher, nil)
	ctx := context.Background()

	if _, err := cache.Load(ctx, "https://t.example/bad.png"); err == nil {
		t.Fatal("expected a fetch error")
	}

	// The failure is not memoized; the next load fetches again.
	fetcher.err = nil
	if _, err := cache.Load(ctx, "https://t.example/bad.png"); err != nil {
		t.Fatalf("retry Load failed: %v", err)
	}
	if atomic.LoadInt64(&fetcher.fetches) != 2 {
		t.Errorf("fetches = %d, want 2", fetcher.fetches)
	}
}

func TestClearEvictsEverything(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCache(fetcher, nil)
	ctx := context.Background()

	if _, err := cache.Load(ctx, "https://t.example/a.png"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cache.Clear()
	if got := cache.Stats().Entries; got != 0 {
		t.Errorf("entries after Clear = %d, want 0", got)
	}

	if _, err := cache.Load(ctx, "https://t.example/a.png"); err != nil {
		t.Fatalf("Load after Clear failed: %v", err)
	}
	if atomic.LoadInt64(&fetcher.fetches) != 2 {
		t.Errorf("fetches = %d, want 2 (Clear is the only eviction path)", fetcher.fetches)
	}
}

func TestLoadBatch(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCache(fetcher, nil)

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://t.example/%d.png", i)
	}
	urls[4] = urls[0] // duplicate coalesces or hits

	results := cache.LoadBatch(context.Background(), urls)
	if len(results) != len(urls) {
		t.Fatalf("results = %d, want %d", len(results), len(urls))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result %d url = %q, want %q (order must match input)", i, r.URL, urls[i])
		}
		if r.Err != nil {
			t.Errorf("result %d failed: %v", i, r.Err)
		}
	}
	if got := atomic.LoadInt64(&fetcher.fetches); got != 4 {
		t.Errorf("fetches = %d, want 4 unique", got)
	}
}

func TestLoadBatchIsolatesFailures(t *testing.T) {
	cache := NewCache(&flakyFetcher{}, nil)

	results := cache.LoadBatch(context.Background(), []string{
		"https://t.example/good.png",
		"https://t.example/bad.png",
	})
	if results[0].Err != nil {
		t.Errorf("good url failed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("bad url should fail without aborting the batch")
	}
}

// flakyFetcher fails URLs containing "bad".
type flakyFetcher struct{}

func (f *flakyFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if strings.HasSuffix(url, "bad.png") {
		return nil, errors.New("unreachable")
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestPlaceholderIsSolidColor(t *testing.T) {
	img := Placeholder(color.RGBA{R: 200, G: 10, B: 10, A: 255})
	bounds := img.Bounds()
	if bounds.Dx() != PlaceholderSize || bounds.Dy() != PlaceholderSize {
		t.Fatalf("placeholder bounds = %v, want %dx%d", bounds, PlaceholderSize, PlaceholderSize)
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 200 || g>>8 != 10 || b>>8 != 10 {
		t.Errorf("placeholder pixel = (%d,%d,%d), want (200,10,10)", r>>8, g>>8, b>>8)
	}
}
