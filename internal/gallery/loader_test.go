package gallery

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"golang.org/x/net/html"
)

func newTestLoader(t *testing.T, moduleURL, submoduleURL string) *ScriptLoader {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	t.Cleanup(func() { ln.Close() })
	go fasthttp.Serve(ln, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/lightbox.js", "/core.js":
			ctx.SetContentType("text/javascript")
			ctx.SetBodyString("export default class {}")
		case "/style.css":
			ctx.SetContentType("text/css")
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})

	l := NewScriptLoader(moduleURL, submoduleURL, time.Second)
	l.client.Dial = func(addr string) (net.Conn, error) {
		return ln.Dial()
	}
	return l
}

func TestScriptLoader_Probe(t *testing.T) {
	l := newTestLoader(t, "http://cdn.test/lightbox.js", "http://cdn.test/core.js")

	result := l.Probe(context.Background())
	require.True(t, result.OK(), "%v", result.Err)
	assert.Equal(t, "http://cdn.test/core.js", result.Submodule)

	root, err := ParseFragment([]byte(`<image-gallery><a href="/media/a.png"><img src="/media/a.png"></a></image-gallery>`))
	require.NoError(t, err)
	host := FindHosts(root)[0]

	viewer, err := result.Module.New(ViewerConfig{CollectionRoot: host, ChildSelector: "a", ModuleLoader: result.Submodule})
	require.NoError(t, err)
	require.NoError(t, viewer.Init())
	require.NoError(t, viewer.Init())

	var b strings.Builder
	require.NoError(t, html.Render(&b, host))
	out := b.String()
	assert.Equal(t, 1, strings.Count(out, "<script"))
	assert.Contains(t, out, `import Lightbox from "http://cdn.test/lightbox.js";`)
	assert.Contains(t, out, `pswpModule: () => import("http://cdn.test/core.js")`)
}

func TestScriptLoader_ProbeFailures(t *testing.T) {
	tests := []struct {
		name      string
		module    string
		submodule string
	}{
		{name: "missing module", module: "http://cdn.test/none.js", submodule: "http://cdn.test/core.js"},
		{name: "missing submodule", module: "http://cdn.test/lightbox.js", submodule: "http://cdn.test/none.js"},
		{name: "not a script", module: "http://cdn.test/style.css", submodule: "http://cdn.test/core.js"},
		{name: "empty url", module: "", submodule: "http://cdn.test/core.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newTestLoader(t, tt.module, tt.submodule).Probe(context.Background())
			assert.False(t, result.OK())
			assert.Error(t, result.Err)
		})
	}
}

func TestScriptLoader_CancelledContext(t *testing.T) {
	l := newTestLoader(t, "http://cdn.test/lightbox.js", "http://cdn.test/core.js")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := l.Probe(ctx)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestGenerateDivId(t *testing.T) {
	seen := make(map[string]struct{})
	for range 50 {
		id := generateDivId(8)
		require.Len(t, id, 8)
		assert.Equal(t, strings.ToLower(id), id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}
