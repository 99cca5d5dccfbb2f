package router

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/SayaAndy/image-gallery/internal/frontmatter"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/storage"
)

type GalleryPage struct {
	Lang     string
	Link     string
	Metadata *frontmatter.Metadata
	HTML     []byte
}

func (s *Supplements) PageKey(lang, link string) string {
	return s.Config.Pages.Prefix + lang + "/" + link + ".md"
}

// ReadPage loads a markdown page and renders it to HTML. Galleries in the
// result are plain hosts and still need to be mounted.
func (s *Supplements) ReadPage(ctx context.Context, lang, link string) (*GalleryPage, error) {
	content, err := storage.ReadAll(ctx, s.Store, s.PageKey(lang, link))
	if err != nil {
		return nil, fmt.Errorf("failed to read a gallery page: %w", err)
	}

	metadata, markdown, err := frontmatter.ParseFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read a frontmatter: %w", err)
	}
	if metadata == nil {
		metadata = &frontmatter.Metadata{Title: link}
	}

	var buf bytes.Buffer
	if err := s.MarkdownRenderer.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("convert source context from md to html: %w", err)
	}

	return &GalleryPage{Lang: lang, Link: link, Metadata: metadata, HTML: buf.Bytes()}, nil
}

// GalleryOptions resolves what galleries on a page mount with: page metadata
// first, then configured defaults.
func (s *Supplements) GalleryOptions(lang string, metadata *frontmatter.Metadata) gallery.Options {
	viewer := s.Config.Gallery.Viewer
	width := 0
	if metadata != nil {
		if metadata.Viewer != "" {
			viewer = metadata.Viewer
		}
		width = metadata.Width
	}

	strategy, err := gallery.ParseStrategy(viewer)
	if err != nil {
		slog.Warn("unknown gallery viewer, using overlay", slog.String("viewer", viewer), slog.String("error", err.Error()))
		strategy = gallery.StrategyOverlay
	}

	return gallery.Options{
		Strategy: strategy,
		Width:    width,
		Viewer:   s.Viewer,
		Labels:   s.Localization[lang].Labels(),
		Logger:   slog.Default(),
	}
}
