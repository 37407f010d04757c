package texturecache

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	// Registered decoders for the formats the material library references.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"planforge/core"
)

// Fetcher retrieves and decodes one texture image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// HTTPFetcher fetches textures over HTTP with a byte-size cap.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher from configuration: the fetch
// timeout and size cap come from TEXTURE_FETCH_TIMEOUT / MAX_TEXTURE_BYTES.
func NewHTTPFetcher(cfg *core.Config) *HTTPFetcher {
	return &HTTPFetcher{
		client:   core.GetHTTPClient(cfg, cfg.TextureFetchTimeout),
		maxBytes: cfg.MaxTextureBytes,
	}
}

// Fetch downloads and decodes the image at url. Responses larger than the
// configured cap fail rather than truncate.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("texturecache: invalid texture url %q: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("texturecache: fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("texturecache: fetch %q: HTTP %d", url, resp.StatusCode)
	}

	// Read one byte past the cap to distinguish at-limit from over-limit.
	limit := f.maxBytes
	if limit <= 0 {
		limit = 8 * core.BytesPerMB
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("texturecache: read %q: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("texturecache: texture %q exceeds the %s limit",
			url, core.FormatBytes(limit))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texturecache: decode %q: %w", url, err)
	}
	return img, nil
}
