package gallerymd

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// StylingExtension tags the prose around galleries with the classes of
// static/gallery.css and opens off-site links in a new tab.
type StylingExtension struct{}

func NewStylingExtension() goldmark.Extender {
	return &StylingExtension{}
}

func (e *StylingExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(&StylingTransformer{}, 500),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(NewLinkRenderer(), 500),
		),
	)
}

type StylingTransformer struct{}

func (t *StylingTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			node.SetAttribute([]byte("class"), []byte(fmt.Sprintf("page-heading page-heading-%d", node.Level)))
		case *ast.Paragraph:
			node.SetAttribute([]byte("class"), []byte("page-text"))
		case *ast.Blockquote:
			node.SetAttribute([]byte("class"), []byte("page-quote"))
		case *ast.Image:
			node.SetAttribute([]byte("class"), []byte("page-image"))
		case *GalleryBlock:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
}

type LinkRenderer struct {
	html.Config
}

func NewLinkRenderer(opts ...html.Option) renderer.NodeRenderer {
	r := &LinkRenderer{
		Config: html.NewConfig(),
	}
	for _, opt := range opts {
		opt.SetHTMLOption(&r.Config)
	}
	return r
}

func (r *LinkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderLink)
}

func (r *LinkRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString(`<a href="`)
	if r.Unsafe || !html.IsDangerousURL(n.Destination) {
		_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	}
	_, _ = w.WriteString(`"`)
	if n.Title != nil {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_, _ = w.WriteString(`"`)
	}
	if bytes.Contains(n.Destination, []byte("://")) {
		_, _ = w.WriteString(` target="_blank" rel="noopener"`)
	}
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, nil)
	}
	_, _ = w.WriteString(">")
	return ast.WalkContinue, nil
}
