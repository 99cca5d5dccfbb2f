package gallery

// Surface is the modal presentation the overlay renders into. IsOpen is the
// authoritative open state; nothing else tracks it.
type Surface interface {
	ShowModal()
	Close()
	IsOpen() bool
	Present(src, alt string)
	// OnClose registers the callback fired whenever the surface goes from open
	// to closed, whatever triggered it.
	OnClose(fn func())
}

// Dialog is an in-memory modal surface.
type Dialog struct {
	open    bool
	src     string
	alt     string
	onClose func()
}

var _ Surface = &Dialog{}

func NewDialog() *Dialog {
	return &Dialog{}
}

func (d *Dialog) ShowModal() {
	d.open = true
}

func (d *Dialog) Close() {
	if !d.open {
		return
	}
	d.open = false
	if d.onClose != nil {
		d.onClose()
	}
}

// Dismiss is the platform closing the dialog by itself (Escape key).
func (d *Dialog) Dismiss() {
	d.Close()
}

func (d *Dialog) IsOpen() bool {
	return d.open
}

func (d *Dialog) Present(src, alt string) {
	d.src = src
	d.alt = alt
}

func (d *Dialog) Image() (src string, alt string) {
	return d.src, d.alt
}

func (d *Dialog) OnClose(fn func()) {
	d.onClose = fn
}
