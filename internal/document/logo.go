package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-quotes/internal/layout"
	"github.com/noah-isme/backend-quotes/internal/resilience"
)

const maxLogoBytes = 4 << 20

// LogoSource provides the header logo. A nil image with a nil error means no logo.
type LogoSource interface {
	Logo(ctx context.Context) (*layout.Image, error)
}

// LogoFetcher downloads a remote logo and normalizes it to a PNG no taller than
// MaxHeightPx. Successful results are memoized for CacheTTL.
type LogoFetcher struct {
	URL         string
	MaxHeightPx int
	CacheTTL    time.Duration
	HTTP        *resilience.HTTPClient
	Now         func() time.Time

	mu       sync.Mutex
	cached   *layout.Image
	cachedAt time.Time
}

// NewLogoFetcher builds a fetcher whose outbound calls are traced and guarded by a breaker.
func NewLogoFetcher(url string, timeout time.Duration, maxHeightPx int) *LogoFetcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client := &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return &LogoFetcher{
		URL:         strings.TrimSpace(url),
		MaxHeightPx: maxHeightPx,
		CacheTTL:    10 * time.Minute,
		HTTP: &resilience.HTTPClient{
			Client:      client,
			Breaker:     resilience.NewBreaker(3, 0.5, 30*time.Second).WithTarget("logo"),
			MaxAttempts: 2,
			BaseBackoff: 100 * time.Millisecond,
			Jitter:      0.2,
			Target:      "logo",
		},
	}
}

// Logo implements LogoSource.
func (f *LogoFetcher) Logo(ctx context.Context) (*layout.Image, error) {
	if f == nil || f.URL == "" {
		return nil, nil
	}
	if f.HTTP == nil {
		return nil, errors.New("logo: http client not configured")
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	f.mu.Lock()
	if f.cached != nil && now().Sub(f.cachedAt) < f.CacheTTL {
		img := f.cached
		f.mu.Unlock()
		return img, nil
	}
	f.mu.Unlock()

	data, _, err := f.HTTP.Fetch(ctx, f.URL, maxLogoBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch logo: %w", err)
	}
	img, err := NormalizeLogo(data, f.MaxHeightPx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.cached, f.cachedAt = img, now()
	f.mu.Unlock()
	return img, nil
}

// NormalizeLogo decodes any supported image, shrinks it to maxHeightPx when taller and
// re-encodes it as PNG.
func NormalizeLogo(data []byte, maxHeightPx int) (*layout.Image, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	if maxHeightPx > 0 && src.Bounds().Dy() > maxHeightPx {
		src = imaging.Resize(src, 0, maxHeightPx, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode logo: %w", err)
	}
	b := src.Bounds()
	return &layout.Image{Name: "logo", Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
