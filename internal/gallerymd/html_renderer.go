package gallerymd

import (
	"fmt"
	"strings"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

type GalleryHTMLRenderer struct {
	html.Config
	mediaPrefix string
}

func NewGalleryHTMLRenderer(mediaPrefix string, opts ...html.Option) renderer.NodeRenderer {
	r := &GalleryHTMLRenderer{
		Config:      html.NewConfig(),
		mediaPrefix: mediaPrefix,
	}
	for _, opt := range opts {
		opt.SetHTMLOption(&r.Config)
	}
	return r
}

func (r *GalleryHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindGalleryBlock, r.renderGallery)
}

func (r *GalleryHTMLRenderer) renderGallery(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	block := n.(*GalleryBlock)
	if len(block.Images) == 0 {
		return ast.WalkContinue, nil
	}

	attrs := ""
	if block.Width > 0 {
		attrs += fmt.Sprintf(` %s="%d"`, gallery.AttrWidth, block.Width)
	}
	if block.Viewer != "" {
		attrs += fmt.Sprintf(` %s="%s"`, gallery.AttrViewer, util.EscapeHTML([]byte(block.Viewer)))
	}

	elements := make([]string, 0, len(block.Images))
	for _, img := range block.Images {
		thumb := ""
		if img.Thumb != "" {
			thumb = fmt.Sprintf(` %s="%s"`, gallery.AttrThumb, r.mediaURL(img.Thumb))
		}
		elements = append(elements, fmt.Sprintf(`
	<img src="%s"%s alt="%s" loading="lazy">`, r.mediaURL(img.URL), thumb, util.EscapeHTML([]byte(img.Alt))))
	}

	_, _ = w.WriteString(fmt.Sprintf(`
<%s%s>%s
</%s>
`, gallery.HostTag, attrs, strings.Join(elements, ""), gallery.HostTag))

	return ast.WalkContinue, nil
}

func (r *GalleryHTMLRenderer) mediaURL(u string) []byte {
	return util.EscapeHTML([]byte(MediaURL(r.mediaPrefix, u)))
}

// MediaURL leaves absolute and rooted URLs alone and prefixes storage keys.
func MediaURL(mediaPrefix, u string) string {
	if !strings.Contains(u, "://") && !strings.HasPrefix(u, "/") {
		u = strings.TrimSuffix(mediaPrefix, "/") + "/" + u
	}
	return string(util.URLEscape([]byte(u), false))
}
