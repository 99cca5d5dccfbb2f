package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ScriptLoader checks that the viewer module and its rendering submodule are
// reachable before the page is allowed to import them.
type ScriptLoader struct {
	ModuleURL    string
	SubmoduleURL string
	Timeout      time.Duration
	client       *fasthttp.Client
}

var _ ModuleLoader = &ScriptLoader{}

func NewScriptLoader(moduleURL, submoduleURL string, timeout time.Duration) *ScriptLoader {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ScriptLoader{
		ModuleURL:    moduleURL,
		SubmoduleURL: submoduleURL,
		Timeout:      timeout,
		client: &fasthttp.Client{
			Name:                "image-gallery",
			MaxIdleConnDuration: time.Minute,
		},
	}
}

func (l *ScriptLoader) Probe(ctx context.Context) LoadResult {
	for _, u := range []string{l.ModuleURL, l.SubmoduleURL} {
		if err := l.check(ctx, u); err != nil {
			return LoadResult{Err: fmt.Errorf("fail to load viewer module '%s': %w", u, err)}
		}
	}
	return LoadResult{Module: &scriptModule{moduleURL: l.ModuleURL}, Submodule: l.SubmoduleURL}
}

func (l *ScriptLoader) check(ctx context.Context, u string) error {
	if u == "" {
		return fmt.Errorf("module url is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := l.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := l.client.DoTimeout(req, resp, timeout); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode())
	}
	if ct := string(resp.Header.ContentType()); !strings.Contains(ct, "javascript") {
		return fmt.Errorf("unexpected content type '%s'", ct)
	}
	return nil
}

type scriptModule struct {
	moduleURL string
}

func (m *scriptModule) New(cfg ViewerConfig) (Viewer, error) {
	if cfg.CollectionRoot == nil {
		return nil, fmt.Errorf("viewer needs a collection root")
	}
	return &scriptViewer{cfg: cfg, moduleURL: m.moduleURL}, nil
}

// scriptViewer bootstraps the viewer in the browser by appending a module
// script to the collection root.
type scriptViewer struct {
	cfg       ViewerConfig
	moduleURL string
}

func (v *scriptViewer) Init() error {
	root := v.cfg.CollectionRoot

	id, ok := getAttr(root, "id")
	if !ok || id == "" {
		id = "gallery-" + generateDivId(8)
		setAttr(root, "id", id)
	}

	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Script {
			if marker, _ := getAttr(c, "data-viewer"); marker == id {
				return nil
			}
		}
	}

	module, err := json.Marshal(v.moduleURL)
	if err != nil {
		return err
	}
	submodule, err := json.Marshal(v.cfg.ModuleLoader)
	if err != nil {
		return err
	}
	selector, err := json.Marshal("#" + id)
	if err != nil {
		return err
	}
	children, err := json.Marshal(v.cfg.ChildSelector)
	if err != nil {
		return err
	}

	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "type", Val: "module"},
			{Key: "data-viewer", Val: id},
		},
	}
	script.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: fmt.Sprintf(`
	import Lightbox from %s;
	const lightbox = new Lightbox({
		gallery: %s,
		children: %s,
		pswpModule: () => import(%s)
	});
	lightbox.init();
`, module, selector, children, submodule),
	})
	root.AppendChild(script)
	return nil
}

func generateDivId(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.IntN(len(charset))]
	}
	return string(b)
}
