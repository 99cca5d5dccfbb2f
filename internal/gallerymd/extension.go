package gallerymd

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

const DefaultMediaPrefix = "/media/"

// Extension that combines parser and renderer
type GalleryExtension struct {
	MediaPrefix string
}

func NewGalleryExtension(mediaPrefix string) goldmark.Extender {
	if mediaPrefix == "" {
		mediaPrefix = DefaultMediaPrefix
	}
	return &GalleryExtension{MediaPrefix: mediaPrefix}
}

func (e *GalleryExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(NewGalleryParser(), 500),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(NewGalleryHTMLRenderer(e.MediaPrefix), 500),
		),
	)
}
