package gallerymd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
)

const page = `# Lisbon

Some words before.

{Gallery:width=4,viewer=external}
tram.jpg thumbs/tram.webp | Yellow tram
https://example.org/river.png | River

/abs/tower.jpg
{/Gallery}

After the gallery.
`

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(NewGalleryExtension("/media/")))
}

func TestGalleryParser_Collect(t *testing.T) {
	md := newMarkdown()
	doc := md.Parser().Parse(text.NewReader([]byte(page)))

	blocks := Collect(doc)
	require.Len(t, blocks, 1)

	block := blocks[0]
	assert.Equal(t, 4, block.Width)
	assert.Equal(t, "external", block.Viewer)
	assert.Equal(t, []GalleryImage{
		{URL: "tram.jpg", Thumb: "thumbs/tram.webp", Alt: "Yellow tram"},
		{URL: "https://example.org/river.png", Alt: "River"},
		{URL: "/abs/tower.jpg"},
	}, block.Images)
}

func TestGalleryRenderer_Markup(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newMarkdown().Convert([]byte(page), &buf))

	out := buf.String()
	assert.Contains(t, out, `<image-gallery width="4" viewer="external">`)
	assert.Contains(t, out, `<img src="/media/tram.jpg" data-thumb="/media/thumbs/tram.webp" alt="Yellow tram" loading="lazy">`)
	assert.Contains(t, out, `<img src="https://example.org/river.png" alt="River" loading="lazy">`)
	assert.Contains(t, out, `<img src="/abs/tower.jpg" alt="" loading="lazy">`)
	assert.Contains(t, out, "<p>After the gallery.</p>")
	assert.Contains(t, out, "<p>Some words before.</p>")
}

func TestGalleryParser_InvalidHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newMarkdown().Convert([]byte("{Gallery:width=4;oops}\nimg.jpg\n"), &buf))

	assert.NotContains(t, buf.String(), "<image-gallery")
}
