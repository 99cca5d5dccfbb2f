package probe

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

var probeConfig = &config.ProbeConfig{
	Timeout:     5 * time.Second,
	Concurrency: 2,
	MaxBytes:    1 << 20,
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func newStore(t *testing.T) (storage.Store, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "photos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "tram.png"), encodePNG(t, 640, 480), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "broken.png"), []byte("not an image"), 0o644))

	store, err := storage.NewFSStore(&config.FSConfig{Root: root})
	require.NoError(t, err)
	return store, root
}

func newRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(&config.DbConfig{
		Type: "sqlite3",
		Cfg:  config.Sqlite3Config{DSN: filepath.Join(t.TempDir(), "probe.db")},
	})
	require.NoError(t, err)
	return repo
}

func TestProber_Storage(t *testing.T) {
	store, _ := newStore(t)
	p, err := NewProber(store, nil, probeConfig, "/media/")
	require.NoError(t, err)
	defer p.Close()

	dims, err := p.Probe(context.Background(), "/media/photos/tram.png")
	require.NoError(t, err)
	assert.Equal(t, gallery.Dimensions{Width: 640, Height: 480}, dims)

	_, err = p.Probe(context.Background(), "/media/photos/broken.png")
	assert.Error(t, err)

	_, err = p.Probe(context.Background(), "/media/photos/missing.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = p.Probe(context.Background(), "relative/tram.png")
	assert.Error(t, err)
}

func TestProber_Remote(t *testing.T) {
	body := encodePNG(t, 320, 200)

	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()
	go fasthttp.Serve(ln, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/river.png":
			ctx.SetContentType("image/png")
			ctx.SetBody(body)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})

	p, err := NewProber(nil, nil, probeConfig, "/media/")
	require.NoError(t, err)
	defer p.Close()
	p.client.Dial = func(string) (net.Conn, error) { return ln.Dial() }

	dims, err := p.Probe(context.Background(), "http://photos.example/river.png")
	require.NoError(t, err)
	assert.Equal(t, gallery.Dimensions{Width: 320, Height: 200}, dims)

	_, err = p.Probe(context.Background(), "http://photos.example/missing.png")
	assert.ErrorContains(t, err, "unexpected status code 404")
}

func TestProber_Persistence(t *testing.T) {
	store, root := newStore(t)
	repo := newRepository(t)

	p, err := NewProber(store, repo, probeConfig, "/media/")
	require.NoError(t, err)

	_, err = p.Probe(context.Background(), "/media/photos/tram.png")
	require.NoError(t, err)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, os.Remove(filepath.Join(root, "photos", "tram.png")))

	fresh, err := NewProber(store, repo, probeConfig, "/media/")
	require.NoError(t, err)
	defer fresh.Close()

	dims, err := fresh.Probe(context.Background(), "/media/photos/tram.png")
	require.NoError(t, err)
	assert.Equal(t, gallery.Dimensions{Width: 640, Height: 480}, dims)
}

func TestRepository_Upsert(t *testing.T) {
	repo := newRepository(t)
	defer repo.Close()
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "/media/a.jpg")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Put(ctx, "/media/a.jpg", gallery.Dimensions{Width: 1, Height: 2}))
	require.NoError(t, repo.Put(ctx, "/media/a.jpg", gallery.Dimensions{Width: 3, Height: 4}))

	dims, found, err := repo.Get(ctx, "/media/a.jpg")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, gallery.Dimensions{Width: 3, Height: 4}, dims)
}
