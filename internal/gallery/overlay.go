package gallery

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"
)

const (
	KeyNext     = "ArrowRight"
	KeyPrevious = "ArrowLeft"
)

var ErrNotInGallery = errors.New("image does not belong to the gallery")

type Region int

const (
	RegionBackdrop Region = iota
	RegionContent
)

// Overlay drives a Surface from the navigator. It keeps no open flag of its
// own: every decision reads Surface.IsOpen.
type Overlay struct {
	surface Surface
	nav     Navigator
	images  []*GalleryImage
	logger  *slog.Logger
}

func NewOverlay(surface Surface, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Overlay{surface: surface, logger: logger}
	surface.OnClose(o.closed)
	return o
}

// Bind swaps in a freshly resolved sequence. The overlay is forced closed since
// indices into the old sequence mean nothing anymore.
func (o *Overlay) Bind(images []*GalleryImage) {
	o.surface.Close()
	o.images = images
	o.nav.Reset()
}

func (o *Overlay) IsOpen() bool {
	return o.surface.IsOpen()
}

func (o *Overlay) Index() int {
	return o.nav.Index()
}

func (o *Overlay) Len() int {
	return len(o.images)
}

// Current returns the displayed image, only while open.
func (o *Overlay) Current() (*GalleryImage, bool) {
	if !o.surface.IsOpen() || len(o.images) == 0 {
		return nil, false
	}
	return o.images[o.nav.Index()], true
}

// Open presents the image held by node. Opening the image that is already on
// display is a no-op.
func (o *Overlay) Open(node *html.Node) error {
	i := IndexOf(o.images, node)
	if i < 0 {
		return ErrNotInGallery
	}
	return o.OpenAt(i)
}

func (o *Overlay) OpenAt(i int) error {
	if o.surface.IsOpen() && o.nav.Index() == i {
		return nil
	}
	if err := o.nav.JumpTo(i, len(o.images)); err != nil {
		return fmt.Errorf("fail to open overlay: %w", err)
	}
	o.render()
	o.surface.ShowModal()
	o.logger.Debug("overlay opened", slog.Int("index", i), slog.String("src", o.images[i].FullsizeURL))
	return nil
}

// HandleKey reacts to navigation keys while open and reports whether the key
// was consumed.
func (o *Overlay) HandleKey(key string) bool {
	if !o.surface.IsOpen() {
		return false
	}

	switch key {
	case KeyNext:
		o.nav.Next(len(o.images))
	case KeyPrevious:
		o.nav.Previous(len(o.images))
	default:
		return false
	}

	o.render()
	return true
}

func (o *Overlay) HandleClick(region Region) {
	if region == RegionBackdrop {
		o.Close()
	}
}

func (o *Overlay) Close() {
	o.surface.Close()
}

func (o *Overlay) render() {
	img := o.images[o.nav.Index()]
	o.surface.Present(img.FullsizeURL, img.AltText)
}

func (o *Overlay) closed() {
	o.logger.Debug("overlay closed", slog.Int("index", o.nav.Index()))
}
