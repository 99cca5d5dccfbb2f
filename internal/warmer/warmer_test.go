package warmer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/gallerymd"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
)

type recordingProber struct {
	mu   sync.Mutex
	seen []string
}

func (p *recordingProber) Probe(_ context.Context, src string) (gallery.Dimensions, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, src)
	if src == "https://example.org/gone.png" {
		return gallery.Dimensions{}, errors.New("gone")
	}
	return gallery.Dimensions{Width: 10, Height: 10}, nil
}

const lisbon = `---
title: Lisbon
---
{Gallery:width=2}
photos/tram.jpg photos/thumbs/tram.jpg | Tram
photos/tram.jpg | Same tram again
https://example.org/gone.png
{/Gallery}
`

const porto = `---
title: Porto
---
{Gallery}
photos/tram.jpg | Tram
{/Gallery}
`

func TestWarmerScheduler_Scan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pages", "en"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "en", "lisbon.md"), []byte(lisbon), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "en", "porto.md"), []byte(porto), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "en", "notes.txt"), []byte("skip"), 0o644))

	store, err := storage.NewFSStore(&config.FSConfig{Root: root})
	require.NoError(t, err)

	cfg := &config.Config{
		Pages:              config.PagesConfig{Prefix: "pages/"},
		Gallery:            config.GalleryConfig{MediaPrefix: "/media/"},
		Probe:              config.ProbeConfig{Concurrency: 2},
		AvailableLanguages: []config.AvailableLanguageConfig{{Name: "en"}, {Name: "ru"}},
	}
	prober := &recordingProber{}
	md := goldmark.New(goldmark.WithExtensions(gallerymd.NewGalleryExtension("/media/")))

	ws, err := NewWarmerScheduler(store, prober, md, cfg, nil)
	require.NoError(t, err)
	defer ws.Close()

	report, err := ws.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Pages: 2, Images: 3, Probed: 2, Failed: 1, FailedSources: []string{"https://example.org/gone.png"}}, report)
	assert.ElementsMatch(t, []string{"/media/photos/tram.jpg", "https://example.org/gone.png", "/media/photos/tram.jpg"}, prober.seen)

	// lisbon had a failure and is scanned again, porto is unchanged
	report, err = ws.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Pages: 1, Images: 2, Probed: 1, Failed: 1, Skipped: 1, FailedSources: []string{"https://example.org/gone.png"}}, report)

	report, err = ws.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Pages)
}
