package probe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/valyala/fasthttp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// Prober reads just enough of an image to learn its intrinsic size.
// Sources under the media prefix are read from storage, absolute URLs over HTTP.
type Prober struct {
	store       storage.Store
	repo        *Repository
	mediaPrefix string
	timeout     time.Duration
	maxBytes    int64
	client      *fasthttp.Client
	cache       *ristretto.Cache[string, gallery.Dimensions]
	group       singleflight.Group
}

var _ gallery.DimensionProber = &Prober{}

// NewProber builds a prober; repo may be nil to skip persistence.
func NewProber(store storage.Store, repo *Repository, cfg *config.ProbeConfig, mediaPrefix string) (*Prober, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, gallery.Dimensions]{
		NumCounters: 1e6,
		MaxCost:     1e5,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("fail to initialize dimensions cache: %w", err)
	}

	return &Prober{
		store:       store,
		repo:        repo,
		mediaPrefix: mediaPrefix,
		timeout:     cfg.Timeout,
		maxBytes:    int64(cfg.MaxBytes),
		client: &fasthttp.Client{
			Name:                "image-gallery-probe",
			MaxIdleConnDuration: time.Minute,
			StreamResponseBody:  true,
		},
		cache: cache,
	}, nil
}

func (p *Prober) Probe(ctx context.Context, src string) (gallery.Dimensions, error) {
	if dims, ok := p.cache.Get(src); ok {
		return dims, nil
	}

	v, err, _ := p.group.Do(src, func() (any, error) {
		return p.probe(ctx, src)
	})
	if err != nil {
		return gallery.Dimensions{}, err
	}
	return v.(gallery.Dimensions), nil
}

func (p *Prober) probe(ctx context.Context, src string) (gallery.Dimensions, error) {
	if p.repo != nil {
		dims, found, err := p.repo.Get(ctx, src)
		if err != nil {
			slog.Warn("fail to read stored dimensions", slog.String("src", src), slog.String("error", err.Error()))
		}
		if found {
			p.remember(src, dims)
			return dims, nil
		}
	}

	var dims gallery.Dimensions
	var err error
	switch {
	case p.isMedia(src):
		dims, err = p.probeStorage(ctx, MediaKey(p.mediaPrefix, src))
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		dims, err = p.probeRemote(ctx, src)
	default:
		err = fmt.Errorf("unsupported image source '%s'", src)
	}
	if err != nil {
		return gallery.Dimensions{}, err
	}

	slog.Debug("probed image", slog.String("src", src), slog.Int("width", dims.Width), slog.Int("height", dims.Height))
	p.remember(src, dims)

	if p.repo != nil {
		if err := p.repo.Put(ctx, src, dims); err != nil {
			slog.Warn("fail to persist dimensions", slog.String("src", src), slog.String("error", err.Error()))
		}
	}
	return dims, nil
}

func (p *Prober) remember(src string, dims gallery.Dimensions) {
	p.cache.Set(src, dims, 1)
	p.cache.Wait()
}

func (p *Prober) isMedia(src string) bool {
	return p.store != nil && p.mediaPrefix != "" && strings.HasPrefix(src, p.mediaPrefix)
}

// MediaKey maps a media URL back onto its storage key.
func MediaKey(mediaPrefix, src string) string {
	key := strings.TrimPrefix(src, mediaPrefix)
	if unescaped, err := url.PathUnescape(key); err == nil {
		return unescaped
	}
	return key
}

func (p *Prober) probeStorage(ctx context.Context, key string) (gallery.Dimensions, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	reader, _, err := p.store.Open(ctx, key)
	if err != nil {
		return gallery.Dimensions{}, fmt.Errorf("fail to open '%s' for probing: %w", key, err)
	}
	defer reader.Close()

	return p.decode(reader)
}

func (p *Prober) probeRemote(ctx context.Context, src string) (gallery.Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return gallery.Dimensions{}, err
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(src)
	req.Header.SetMethod(fasthttp.MethodGet)
	if p.maxBytes > 0 {
		req.Header.Set(fasthttp.HeaderRange, fmt.Sprintf("bytes=0-%d", p.maxBytes-1))
	}

	var err error
	if timeout > 0 {
		err = p.client.DoTimeout(req, resp, timeout)
	} else {
		err = p.client.Do(req, resp)
	}
	if err != nil {
		return gallery.Dimensions{}, fmt.Errorf("fail to fetch '%s': %w", src, err)
	}
	defer resp.CloseBodyStream()

	if code := resp.StatusCode(); code != fasthttp.StatusOK && code != fasthttp.StatusPartialContent {
		return gallery.Dimensions{}, fmt.Errorf("fail to fetch '%s': unexpected status code %d", src, code)
	}

	if stream := resp.BodyStream(); stream != nil {
		return p.decode(stream)
	}
	return p.decode(bytes.NewReader(resp.Body()))
}

func (p *Prober) decode(r io.Reader) (gallery.Dimensions, error) {
	if p.maxBytes > 0 {
		r = io.LimitReader(r, p.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return gallery.Dimensions{}, fmt.Errorf("fail to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return gallery.Dimensions{}, fmt.Errorf("%s image reports empty size %dx%d", format, cfg.Width, cfg.Height)
	}

	return gallery.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func (p *Prober) Close() error {
	p.cache.Close()
	if p.repo != nil {
		return p.repo.Close()
	}
	return nil
}
