package gallery

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

const defaultProbeConcurrency = 4

type DimensionProber interface {
	Probe(ctx context.Context, src string) (Dimensions, error)
}

// ViewerConfig is what an external viewer module is constructed with.
type ViewerConfig struct {
	CollectionRoot *html.Node
	ChildSelector  string
	// ModuleLoader references the rendering submodule the viewer pulls in
	// lazily when it opens.
	ModuleLoader string
}

type Viewer interface {
	Init() error
}

type Module interface {
	New(cfg ViewerConfig) (Viewer, error)
}

// LoadResult is the outcome of a capability probe of the external viewer.
type LoadResult struct {
	Module    Module
	Submodule string
	Err       error
}

func (r LoadResult) OK() bool {
	return r.Err == nil && r.Module != nil
}

type ModuleLoader interface {
	Probe(ctx context.Context) LoadResult
}

// Guard runs fn under the owner's lock if the owner is still attached and
// reports whether fn ran.
type Guard func(fn func()) bool

type ActivationResult struct {
	Wrapped  int
	Skipped  int
	Viewer   bool
	Detached bool
	LoadErr  error
}

// ViewerAdapter hands a gallery over to an external viewer library.
type ViewerAdapter struct {
	prober      DimensionProber
	loader      ModuleLoader
	concurrency int
	logger      *slog.Logger
}

func NewViewerAdapter(prober DimensionProber, loader ModuleLoader, concurrency int, logger *slog.Logger) *ViewerAdapter {
	if concurrency <= 0 {
		concurrency = defaultProbeConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewerAdapter{prober: prober, loader: loader, concurrency: concurrency, logger: logger}
}

// Activate probes every image independently and wraps each one as soon as its
// own probe is done. Only the module load waits for the whole batch. Nothing
// here returns an error: failures are logged and reported in the result.
func (a *ViewerAdapter) Activate(ctx context.Context, host *html.Node, images []*GalleryImage, guard Guard) ActivationResult {
	var wrapped, skipped atomic.Int32
	var detached atomic.Bool

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for _, img := range images {
		src := img.FullsizeURL
		g.Go(func() error {
			dims, err := a.prober.Probe(ctx, src)
			if err != nil {
				a.logger.Warn("fail to probe image dimensions", slog.String("src", src), slog.String("error", err.Error()))
				skipped.Add(1)
				return nil
			}
			if dims.Width <= 0 || dims.Height <= 0 {
				a.logger.Warn("probed image has no dimensions", slog.String("src", src))
				skipped.Add(1)
				return nil
			}

			ran := guard(func() {
				img.IntrinsicWidth = dims.Width
				img.IntrinsicHeight = dims.Height
				wrapImage(img)
			})
			if !ran {
				detached.Store(true)
				return nil
			}
			wrapped.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := ActivationResult{
		Wrapped:  int(wrapped.Load()),
		Skipped:  int(skipped.Load()),
		Detached: detached.Load(),
	}
	if result.Detached {
		return result
	}

	loaded := a.loader.Probe(ctx)
	if !loaded.OK() {
		result.LoadErr = loaded.Err
		a.logger.Warn("external viewer is unavailable, keeping plain links", slog.Any("error", loaded.Err))
		return result
	}

	ran := guard(func() {
		viewer, err := loaded.Module.New(ViewerConfig{
			CollectionRoot: host,
			ChildSelector:  "a",
			ModuleLoader:   loaded.Submodule,
		})
		if err != nil {
			result.LoadErr = err
			a.logger.Warn("fail to construct external viewer", slog.String("error", err.Error()))
			return
		}
		if err = viewer.Init(); err != nil {
			result.LoadErr = err
			a.logger.Warn("fail to initialize external viewer", slog.String("error", err.Error()))
			return
		}
		result.Viewer = true
	})
	if !ran {
		result.Detached = true
	}

	return result
}

// wrapImage puts the image behind an anchor carrying the full-size URL and the
// probed dimensions. Only the visual attributes of the image survive.
func wrapImage(img *GalleryImage) {
	old := img.Node
	parent := old.Parent
	if parent == nil {
		return
	}

	width := strconv.Itoa(img.IntrinsicWidth)
	height := strconv.Itoa(img.IntrinsicHeight)

	if isViewerAnchor(parent) {
		setAttr(parent, "href", img.FullsizeURL)
		setAttr(parent, AttrViewerWidth, width)
		setAttr(parent, AttrViewerHeight, height)
		return
	}

	anchor := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "href", Val: img.FullsizeURL},
			{Key: AttrViewerWidth, Val: width},
			{Key: AttrViewerHeight, Val: height},
			{Key: "target", Val: "_blank"},
		},
	}

	fresh := &html.Node{Type: html.ElementNode, Data: "img", DataAtom: atom.Img}
	for _, key := range []string{"src", "alt", "class", "style", AttrFullsize, AttrThumb} {
		if val, ok := getAttr(old, key); ok {
			fresh.Attr = append(fresh.Attr, html.Attribute{Key: key, Val: val})
		}
	}

	anchor.AppendChild(fresh)
	parent.InsertBefore(anchor, old)
	parent.RemoveChild(old)
	img.Node = fresh
}

func isViewerAnchor(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.A {
		return false
	}
	_, ok := getAttr(n, AttrViewerWidth)
	return ok
}
