package handlers

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lisbonPage = `---
title: Lisbon
description: Trams and tiles
publishedTime: 2025-06-01T10:00:00Z
---
# Lisbon

{Gallery:width=4}
photos/a.png | First
photos/b.png | Second
photos/c.png | Third
{/Gallery}
`

const remotePage = `---
title: Remote
viewer: external
---
{Gallery}
photos/a.png | First
photos/missing.png | Missing
{/Gallery}
`

var (
	testApp    *fiber.App
	testRouter *router.Router
	aPNG       []byte
)

func TestMain(m *testing.M) {
	code, err := runTests(m)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

func runTests(m *testing.M) (int, error) {
	root, err := os.MkdirTemp("", "image-gallery-handlers")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(root)

	var buf bytes.Buffer
	if err = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		return 0, err
	}
	aPNG = buf.Bytes()

	files := map[string][]byte{
		"pages/en/lisbon.md": []byte(lisbonPage),
		"pages/en/remote.md": []byte(remotePage),
		"photos/a.png":       aPNG,
		"photos/b.png":       aPNG,
		"photos/c.png":       aPNG,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return 0, err
		}
		if err = os.WriteFile(path, content, 0o644); err != nil {
			return 0, err
		}
	}

	cfg := &config.Config{
		LogLevel: slog.LevelWarn,
		Listen:   ":0",
		Storage:  config.StorageConfig{Type: "fs", FS: &config.FSConfig{Root: root}},
		Pages:    config.PagesConfig{Prefix: "pages/", CacheDuration: time.Minute},
		Gallery: config.GalleryConfig{
			Viewer:      "overlay",
			MediaPrefix: "/media/",
			HtmxURL:     "https://unpkg.com/htmx.org@2.0.3",
			External:    config.ViewerConfig{Timeout: time.Second},
		},
		Probe: config.ProbeConfig{
			Timeout:     5 * time.Second,
			Concurrency: 2,
			MaxBytes:    1 << 20,
			Db:          config.DbConfig{Type: "sqlite3", Cfg: config.Sqlite3Config{DSN: filepath.Join(root, "probe.db")}},
		},
		Sessions:   config.SessionsConfig{TTL: time.Minute, Salt: "pepper"},
		LocalePath: "../../../locale/",
		AvailableLanguages: []config.AvailableLanguageConfig{
			{Name: "en", LocFile: "en.yaml"},
			{Name: "ru", LocFile: "ru.yaml"},
		},
	}

	r, err := router.NewRouter(cfg)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if err = r.InitRoutes(); err != nil {
		return 0, err
	}
	testRouter = r
	testApp = r.App()

	return m.Run(), nil
}

func do(t *testing.T, req *http.Request) (int, http.Header, string) {
	t.Helper()
	resp, err := testApp.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(body)
}

func get(t *testing.T, target string) (int, string) {
	t.Helper()
	status, _, body := do(t, httptest.NewRequest(fiber.MethodGet, target, nil))
	return status, body
}

func form(t *testing.T, method, target string, values url.Values) (int, http.Header, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return do(t, req)
}

func TestRoot(t *testing.T) {
	status, body := get(t, "/")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `href="/en/gallery"`)
	assert.Contains(t, body, `href="/ru/gallery"`)
}

func TestGalleryCatalogue(t *testing.T) {
	status, body := get(t, "/en/gallery")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `href="/en/gallery/lisbon"`)
	assert.Contains(t, body, "Trams and tiles")
	assert.Contains(t, body, `href="/en/gallery/remote"`)

	status, _ = get(t, "/de/gallery")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGalleryPage_Overlay(t *testing.T) {
	status, body := get(t, "/en/gallery/lisbon")
	require.Equal(t, fiber.StatusOK, status)

	assert.Contains(t, body, "<title>Lisbon</title>")
	assert.Contains(t, body, "grid-template-columns: repeat(4, 1fr)")
	assert.Contains(t, body, `<img src="/media/photos/b.png" alt="Second"`)
	assert.Contains(t, body, `<dialog class="image-gallery-modal" data-index="0" data-count="3">`)
	assert.Contains(t, body, `aria-label="Close modal"`)
	assert.NotContains(t, body, "data-pswp-width")

	assert.Contains(t, body, `hx-post="/api/v1/session"`)
	assert.Contains(t, body, `hx-trigger="load"`)
	assert.Contains(t, body, `hx-vals="{&#34;gallery&#34;:&#34;0&#34;,&#34;lang&#34;:&#34;en&#34;,&#34;page&#34;:&#34;lisbon&#34;}"`)
	assert.Contains(t, body, `<script src="https://unpkg.com/htmx.org@2.0.3" defer></script>`)
}

func TestGalleryPage_ExternalViewerUnavailable(t *testing.T) {
	status, body := get(t, "/en/gallery/remote")
	require.Equal(t, fiber.StatusOK, status)

	assert.Contains(t, body, `<a href="/media/photos/a.png" data-pswp-width="64" data-pswp-height="48" target="_blank">`)
	assert.Contains(t, body, `<img src="/media/photos/missing.png" alt="Missing"`)
	assert.Contains(t, body, `<p class="viewer-unavailable">`)
	assert.NotContains(t, body, "<dialog")
	assert.NotContains(t, body, `hx-post="/api/v1/session"`)
}

func TestGalleryPage_NotFound(t *testing.T) {
	status, _ := get(t, "/en/gallery/porto")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = get(t, "/xx/gallery/lisbon")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestMedia(t *testing.T) {
	status, header, body := do(t, httptest.NewRequest(fiber.MethodGet, "/media/photos/a.png", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "image/png", header.Get(fiber.HeaderContentType))
	assert.Equal(t, string(aPNG), body)

	status, _ = get(t, "/media/photos/none.png")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestProbe(t *testing.T) {
	status, body := get(t, "/api/v1/probe?src="+url.QueryEscape("/media/photos/c.png"))
	require.Equal(t, fiber.StatusOK, status)

	var dims gallery.Dimensions
	require.NoError(t, json.Unmarshal([]byte(body), &dims))
	assert.Equal(t, gallery.Dimensions{Width: 64, Height: 48}, dims)

	status, _ = get(t, "/api/v1/probe")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = get(t, "/api/v1/probe?src="+url.QueryEscape("/media/photos/none.png"))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSession_Lifecycle(t *testing.T) {
	status, header, body := form(t, fiber.MethodPost, "/api/v1/session", url.Values{
		"lang": {"en"}, "page": {"lisbon"}, "gallery": {"0"},
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	var trigger map[string]string
	require.NoError(t, json.Unmarshal([]byte(header.Get("HX-Trigger")), &trigger))
	id := trigger["gallerySession"]
	require.NotEmpty(t, id)
	assert.Contains(t, body, `data-open="false" data-index="-1" data-count="3"`)

	base := "/api/v1/session/" + id
	assert.Contains(t, body, `<img src="/media/photos/b.png" alt="Second" loading="lazy" data-fullsize="/media/photos/b.png" hx-post="`+base+`/click" hx-trigger="click" hx-vals="{&#34;index&#34;: &#34;1&#34;}"/>`)
	assert.Contains(t, body, `data-count="3" hx-post="`+base+`/close" hx-trigger="click[target===this]" hx-vals="{&#34;via&#34;: &#34;backdrop&#34;}">`)
	assert.Contains(t, body, `aria-label="Close modal" hx-post="`+base+`/close" hx-vals="{&#34;via&#34;: &#34;control&#34;}">`)
	assert.NotContains(t, body, `hx-trigger="load"`)

	status, _, body = form(t, fiber.MethodPost, base+"/click", url.Values{"index": {"1"}})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body, `data-open="true" data-index="1"`)
	assert.Contains(t, body, `src="/media/photos/b.png" alt="Second"`)

	_, _, body = form(t, fiber.MethodPost, base+"/key", url.Values{"key": {"ArrowRight"}})
	assert.Contains(t, body, `data-open="true" data-index="2"`)

	_, _, body = form(t, fiber.MethodPost, base+"/key", url.Values{"key": {"ArrowRight"}})
	assert.Contains(t, body, `data-open="true" data-index="0"`)

	_, _, body = form(t, fiber.MethodPost, base+"/key", url.Values{"key": {"ArrowLeft"}})
	assert.Contains(t, body, `data-open="true" data-index="2"`)

	_, _, body = form(t, fiber.MethodPost, base+"/close", url.Values{"via": {"content"}})
	assert.Contains(t, body, `data-open="true" data-index="2"`)

	_, _, body = form(t, fiber.MethodPost, base+"/close", url.Values{"via": {"backdrop"}})
	assert.Contains(t, body, `data-open="false"`)

	_, _, body = form(t, fiber.MethodPost, base+"/key", url.Values{"key": {"ArrowRight"}})
	assert.Contains(t, body, `data-open="false"`)

	status, _, _ = form(t, fiber.MethodPost, base+"/click", url.Values{"index": {"3"}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _, _ = form(t, fiber.MethodPost, base+"/close", url.Values{"via": {"window"}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _, body = form(t, fiber.MethodPut, base+"/width", url.Values{"width": {"5"}})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body, "grid-template-columns: repeat(5, 1fr)")

	_, _, body = form(t, fiber.MethodPut, base+"/width", url.Values{"width": {"zero"}})
	assert.Contains(t, body, "grid-template-columns: repeat(3, 1fr)")

	status, _, body = do(t, httptest.NewRequest(fiber.MethodDelete, base, nil))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body, "gallery-session-ended")

	status, _, _ = form(t, fiber.MethodPost, base+"/click", url.Values{"index": {"0"}})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSession_CloseVariants(t *testing.T) {
	_, header, _ := form(t, fiber.MethodPost, "/api/v1/session", url.Values{"lang": {"en"}, "page": {"lisbon"}})

	var trigger map[string]string
	require.NoError(t, json.Unmarshal([]byte(header.Get("HX-Trigger")), &trigger))
	base := "/api/v1/session/" + trigger["gallerySession"]

	for _, via := range []string{"control", "dismiss"} {
		_, _, body := form(t, fiber.MethodPost, base+"/click", url.Values{"index": {"2"}})
		require.Contains(t, body, `data-open="true" data-index="2"`)

		_, _, body = form(t, fiber.MethodPost, base+"/close", url.Values{"via": {via}})
		assert.Contains(t, body, `data-open="false"`, via)
	}

	_, _, body := form(t, fiber.MethodPost, base+"/click", url.Values{"index": {"0"}})
	require.Contains(t, body, `data-open="true" data-index="0"`)

	_, _, body = form(t, fiber.MethodPost, base+"/key", url.Values{"key": {"Escape"}})
	assert.Contains(t, body, `data-open="false"`)
}

func TestSession_BadRequests(t *testing.T) {
	status, _, _ := form(t, fiber.MethodPost, "/api/v1/session", url.Values{"lang": {"de"}, "page": {"lisbon"}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _, _ = form(t, fiber.MethodPost, "/api/v1/session", url.Values{"lang": {"en"}, "page": {"porto"}})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = form(t, fiber.MethodPost, "/api/v1/session", url.Values{"lang": {"en"}, "page": {"lisbon"}, "gallery": {"1"}})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = form(t, fiber.MethodPost, "/api/v1/session/unknown/key", url.Values{"key": {"ArrowRight"}})
	assert.Equal(t, fiber.StatusNotFound, status)
}

type blockedProber struct {
	release chan struct{}
}

func (p *blockedProber) Probe(_ context.Context, _ string) (gallery.Dimensions, error) {
	<-p.release
	return gallery.Dimensions{Width: 1, Height: 1}, nil
}

type unavailableLoader struct{}

func (unavailableLoader) Probe(_ context.Context) gallery.LoadResult {
	return gallery.LoadResult{Err: errors.New("offline")}
}

func TestMountSession_FailedRenderDeletesSession(t *testing.T) {
	supplements := testRouter.Supplements()

	prober := &blockedProber{release: make(chan struct{})}
	viewer := supplements.Viewer
	supplements.Viewer = gallery.NewViewerAdapter(prober, unavailableLoader{}, 1, nil)
	defer func() {
		supplements.Viewer = viewer
		close(prober.release)
	}()

	page, err := supplements.ReadPage(context.Background(), "en", "remote")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, status, err := mountSession(ctx, supplements, "10.1.1.1", "en", page, 0, fiber.Map{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	require.NotNil(t, session)

	_, err = supplements.Sessions.Get(session.ID, "10.1.1.1")
	assert.ErrorIs(t, err, router.ErrSessionNotFound)

	require.NoError(t, session.Do(func(comp *gallery.Component, _ *gallery.EventTarget) error {
		assert.False(t, comp.Snapshot().Mounted)
		return nil
	}))
}
