package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

const DefaultWidth = 3

var ErrNotMounted = errors.New("gallery is not mounted")

type Strategy int

const (
	StrategyOverlay Strategy = iota
	StrategyExternal
)

func (s Strategy) String() string {
	switch s {
	case StrategyExternal:
		return "external"
	default:
		return "overlay"
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overlay":
		return StrategyOverlay, nil
	case "external":
		return StrategyExternal, nil
	}
	return StrategyOverlay, fmt.Errorf("unknown viewer strategy '%s'", s)
}

type Labels struct {
	Close             string
	Next              string
	Previous          string
	ViewerUnavailable string
}

var DefaultLabels = Labels{
	Close:             "Close modal",
	Next:              "Next image",
	Previous:          "Previous image",
	ViewerUnavailable: "Viewer is unavailable, images open as plain links",
}

type Options struct {
	Strategy Strategy
	// Width applies to hosts without a valid width attribute; zero means DefaultWidth.
	Width  int
	Viewer *ViewerAdapter
	Labels Labels
	Logger *slog.Logger
}

// Snapshot is a read-only copy of the component state.
type Snapshot struct {
	Mounted      bool
	Width        int
	Strategy     Strategy
	Images       []GalleryImage
	OverlayOpen  bool
	CurrentIndex int
	OverlaySrc   string
	OverlayAlt   string
	Activation   ActivationResult
}

// Component binds a gallery host element to the overlay or the external viewer
// for as long as it is mounted. All state changes happen under mu.
type Component struct {
	mu     sync.Mutex
	host   *html.Node
	events KeyEventSource
	opts   Options
	logger *slog.Logger

	mounted    bool
	generation uint64
	width      int
	images     []*GalleryImage

	dialog  *Dialog
	overlay *Overlay

	removeKey      func()
	activationDone chan struct{}
	activation     ActivationResult
}

func NewComponent(host *html.Node, events KeyEventSource, opts Options) *Component {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Labels == (Labels{}) {
		opts.Labels = DefaultLabels
	}

	if val, ok := getAttr(host, AttrViewer); ok {
		strategy, err := ParseStrategy(val)
		if err != nil {
			logger.Warn("ignore gallery viewer attribute", slog.String("viewer", val), slog.String("error", err.Error()))
		} else {
			opts.Strategy = strategy
		}
	}
	if opts.Strategy == StrategyExternal && opts.Viewer == nil {
		logger.Warn("no external viewer configured, falling back to overlay")
		opts.Strategy = StrategyOverlay
	}

	c := &Component{
		host:   host,
		events: events,
		opts:   opts,
		logger: logger,
		width:  DefaultWidth,
	}
	if opts.Strategy == StrategyOverlay {
		c.dialog = NewDialog()
		c.overlay = NewOverlay(c.dialog, logger)
	}
	return c
}

func (c *Component) Host() *html.Node {
	return c.host
}

func (c *Component) OnMount(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mounted {
		return
	}
	c.mounted = true
	c.rebuild(ctx)
	c.removeKey = c.events.AddKeyListener(c.handleKey)
}

// OnConfigChange observes the width attribute only. Any change rebuilds the
// component from scratch and closes the overlay.
func (c *Component) OnConfigChange(ctx context.Context, name string, value string) {
	if name != AttrWidth {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	setAttr(c.host, AttrWidth, value)
	if !c.mounted {
		return
	}
	c.rebuild(ctx)
}

func (c *Component) OnUnmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return
	}
	c.mounted = false
	c.generation++

	if c.removeKey != nil {
		c.removeKey()
		c.removeKey = nil
	}
	if c.overlay != nil {
		c.overlay.Bind(nil)
	}
	c.images = nil
}

// Abandon unmounts a component whose activation did not finish in time.
// Images wrapped so far keep their anchors, late probe results are dropped and
// the external viewer counts as unavailable.
func (c *Component) Abandon(reason error) {
	c.OnUnmount()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.Strategy == StrategyExternal && !c.activation.Viewer && c.activation.LoadErr == nil {
		c.activation.LoadErr = reason
	}
}

// Wait blocks until the current external viewer activation is over.
func (c *Component) Wait(ctx context.Context) (ActivationResult, error) {
	c.mu.Lock()
	done := c.activationDone
	c.mu.Unlock()

	if done == nil {
		return ActivationResult{}, nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ActivationResult{}, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activation, nil
}

// Click opens the overlay on the grid image held by node. With the external
// viewer the click belongs to the anchor and nothing happens here.
func (c *Component) Click(node *html.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return ErrNotMounted
	}
	if c.overlay == nil {
		return nil
	}
	return c.overlay.Open(node)
}

func (c *Component) ClickAt(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return ErrNotMounted
	}
	if c.overlay == nil {
		return nil
	}
	return c.overlay.OpenAt(i)
}

func (c *Component) ClickSurface(region Region) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.overlay != nil {
		c.overlay.HandleClick(region)
	}
}

// CloseControl is the explicit close button.
func (c *Component) CloseControl() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.overlay != nil {
		c.overlay.Close()
	}
}

// Dismiss is the platform closing the dialog on its own.
func (c *Component) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dialog != nil {
		c.dialog.Dismiss()
	}
}

func (c *Component) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Mounted:      c.mounted,
		Width:        c.width,
		Strategy:     c.opts.Strategy,
		Images:       make([]GalleryImage, 0, len(c.images)),
		CurrentIndex: -1,
		Activation:   c.activation,
	}
	for _, img := range c.images {
		s.Images = append(s.Images, *img)
	}
	if c.overlay != nil && c.overlay.IsOpen() {
		s.OverlayOpen = true
		s.CurrentIndex = c.overlay.Index()
		s.OverlaySrc, s.OverlayAlt = c.dialog.Image()
	}
	return s
}

func (c *Component) handleKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted || c.overlay == nil {
		return
	}
	c.overlay.HandleKey(key)
}

func (c *Component) rebuild(ctx context.Context) {
	c.generation++
	c.width = parseWidth(c.host, c.opts.Width)
	c.images = Resolve(ContentNodes(c.host))

	switch c.opts.Strategy {
	case StrategyOverlay:
		c.overlay.Bind(c.images)
	case StrategyExternal:
		c.startActivation(ctx)
	}

	c.logger.Debug("gallery rebuilt",
		slog.Int("images", len(c.images)),
		slog.Int("width", c.width),
		slog.String("viewer", c.opts.Strategy.String()),
	)
}

func (c *Component) startActivation(ctx context.Context) {
	gen := c.generation
	images := c.images
	done := make(chan struct{})
	c.activationDone = done
	c.activation = ActivationResult{}

	guard := func(fn func()) bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.mounted || c.generation != gen {
			return false
		}
		fn()
		return true
	}

	go func() {
		defer close(done)
		result := c.opts.Viewer.Activate(ctx, c.host, images, guard)

		c.mu.Lock()
		if c.generation == gen {
			c.activation = result
		}
		c.mu.Unlock()
	}()
}

func parseWidth(host *html.Node, fallback int) int {
	if fallback <= 0 {
		fallback = DefaultWidth
	}
	val, ok := getAttr(host, AttrWidth)
	if !ok {
		return fallback
	}
	width, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Controls are extra attributes rendered onto the interactive parts of an
// overlay gallery, so a client can forward its pointer events.
type Controls struct {
	// Image returns the attributes of the grid image at index i.
	Image    func(i int) []html.Attribute
	Backdrop []html.Attribute
	Close    []html.Attribute
}

// Render writes the host with its grid styling, its content and, for the
// overlay strategy, the modal markup reflecting the current state.
func (c *Component) Render(w io.Writer) error {
	return c.RenderControlled(w, nil)
}

// RenderControlled is Render with controls attached to the grid images, the
// dialog backdrop and the close button. The host tree is left untouched.
func (c *Component) RenderControlled(w io.Writer, controls *Controls) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder

	b.WriteString("<" + HostTag)
	for _, a := range c.host.Attr {
		if a.Namespace != "" || a.Key == "style" || a.Key == AttrViewer {
			continue
		}
		b.WriteString(fmt.Sprintf(` %s="%s"`, a.Key, html.EscapeString(a.Val)))
	}
	b.WriteString(fmt.Sprintf(` %s="%s" style="display: grid; grid-template-columns: repeat(%d, 1fr); gap: 10px; width: 100%%;">`,
		AttrViewer, c.opts.Strategy, c.width))

	b.WriteString(`
	<style>
		image-gallery > img, image-gallery > a > img {
			width: 100%; aspect-ratio: 1 / 1; object-fit: cover; cursor: pointer; display: block;
		}
		image-gallery dialog { padding: 0; border: none; background: transparent; max-width: 95vw; max-height: 95vh; outline: none; }
		image-gallery dialog::backdrop { background: rgba(0, 0, 0, 0.85); }
	</style>`)

	for child := c.host.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.Data == "dialog" {
			continue
		}
		if err := html.Render(&b, c.controlled(child, controls)); err != nil {
			return fmt.Errorf("fail to render gallery content: %w", err)
		}
	}

	if c.overlay != nil {
		src, alt := c.dialog.Image()
		open := ""
		if c.overlay.IsOpen() {
			open = " open"
		} else {
			src, alt = "", ""
		}
		b.WriteString(fmt.Sprintf(`
	<dialog class="image-gallery-modal"%s data-index="%d" data-count="%d"%s>
		<div class="modal-container">
			<form method="dialog">
				<button class="close-btn" aria-label="%s"%s>&times;</button>
			</form>
			<img class="modal-img" src="%s" alt="%s">
		</div>
	</dialog>`, open, c.overlay.Index(), c.overlay.Len(), renderAttrs(controls.backdrop()),
			html.EscapeString(c.opts.Labels.Close), renderAttrs(controls.closeAttrs()), html.EscapeString(src), html.EscapeString(alt)))
	}

	if c.opts.Strategy == StrategyExternal && c.activation.LoadErr != nil {
		b.WriteString(fmt.Sprintf(`
	<p class="viewer-unavailable">%s</p>`, html.EscapeString(c.opts.Labels.ViewerUnavailable)))
	}

	b.WriteString("\n</" + HostTag + ">")

	_, err := io.WriteString(w, b.String())
	return err
}

// controlled returns a detached copy of a grid image carrying its control
// attributes, or n itself when there is nothing to add.
func (c *Component) controlled(n *html.Node, controls *Controls) *html.Node {
	if controls == nil || controls.Image == nil || c.overlay == nil {
		return n
	}
	i := IndexOf(c.images, n)
	if i < 0 {
		return n
	}
	attrs := controls.Image(i)
	if len(attrs) == 0 {
		return n
	}

	cp := *n
	cp.Parent, cp.PrevSibling, cp.NextSibling = nil, nil, nil
	cp.Attr = append(slices.Clone(n.Attr), attrs...)
	return &cp
}

func (ctl *Controls) backdrop() []html.Attribute {
	if ctl == nil {
		return nil
	}
	return ctl.Backdrop
}

func (ctl *Controls) closeAttrs() []html.Attribute {
	if ctl == nil {
		return nil
	}
	return ctl.Close
}

func renderAttrs(attrs []html.Attribute) string {
	var b strings.Builder
	for _, a := range attrs {
		b.WriteString(fmt.Sprintf(` %s="%s"`, a.Key, html.EscapeString(a.Val)))
	}
	return b.String()
}
