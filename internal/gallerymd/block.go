package gallerymd

import (
	"github.com/yuin/goldmark/ast"
)

// GalleryBlock represents an image gallery block in the AST
type GalleryBlock struct {
	ast.BaseBlock
	Images []GalleryImage
	Width  int
	Viewer string
}

type GalleryImage struct {
	URL   string
	Thumb string
	Alt   string
}

var KindGalleryBlock = ast.NewNodeKind("GalleryBlock")

// Dump implements ast.Node.Dump
func (n *GalleryBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Kind implements ast.Node.Kind
func (n *GalleryBlock) Kind() ast.NodeKind {
	return KindGalleryBlock
}

// Collect returns every gallery block of a parsed document in order.
func Collect(doc ast.Node) []*GalleryBlock {
	blocks := make([]*GalleryBlock, 0)
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if block, ok := n.(*GalleryBlock); ok {
			blocks = append(blocks, block)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}
