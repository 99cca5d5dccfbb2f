package gallerymd

import (
	"bytes"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var headerRe = regexp.MustCompile(`^\{Gallery(?::([A-Za-z0-9=,\s]*))?\}$`)

type GalleryParser struct{}

func NewGalleryParser() parser.BlockParser {
	return &GalleryParser{}
}

func (p *GalleryParser) Trigger() []byte {
	return []byte{'{'}
}

func (p *GalleryParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()

	if !bytes.HasPrefix(line, []byte("{Gallery")) {
		return nil, parser.NoChildren
	}

	trimmed := bytes.TrimSpace(line)
	parts := headerRe.FindSubmatch(trimmed)
	if parts == nil {
		slog.Warn("invalid gallery header format", slog.String("line", string(trimmed)))
		return nil, parser.NoChildren
	}

	block := &GalleryBlock{}
	for _, option := range strings.Split(string(parts[1]), ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(option), "=")
		switch strings.TrimSpace(key) {
		case "":
		case "width":
			width, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || width <= 0 {
				slog.Warn("invalid gallery width", slog.String("line", string(trimmed)), slog.String("width", value))
				continue
			}
			block.Width = width
		case "viewer":
			block.Viewer = strings.TrimSpace(value)
		default:
			slog.Warn("unknown gallery option", slog.String("line", string(trimmed)), slog.String("option", key))
		}
	}

	return block, parser.NoChildren
}

// Continue reads one image per line: "<url> [thumbnail url] | alt text".
func (p *GalleryParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if len(line) == 0 || segment.Len() == 0 {
		return parser.Continue | parser.NoChildren
	}

	trimmed := bytes.TrimSpace(line)
	if bytes.Equal(trimmed, []byte("{Gallery}")) || bytes.Equal(trimmed, []byte("{/Gallery}")) {
		reader.AdvanceToEOL()
		return parser.Close
	}
	if len(trimmed) == 0 {
		reader.AdvanceToEOL()
		return parser.Continue | parser.NoChildren
	}

	gallery := node.(*GalleryBlock)

	parts := bytes.SplitN(trimmed, []byte{'|'}, 2)
	urls := strings.Fields(string(parts[0]))
	if len(urls) == 0 {
		reader.AdvanceToEOL()
		return parser.Continue | parser.NoChildren
	}

	img := GalleryImage{URL: urls[0]}
	if len(urls) > 1 {
		img.Thumb = urls[1]
	}
	if len(parts) > 1 {
		img.Alt = string(bytes.TrimSpace(parts[1]))
	}
	gallery.Images = append(gallery.Images, img)

	reader.AdvanceToEOL()
	return parser.Continue | parser.NoChildren
}

func (p *GalleryParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
}

func (p *GalleryParser) CanInterruptParagraph() bool {
	return true
}

func (p *GalleryParser) CanAcceptIndentedLine() bool {
	return false
}
