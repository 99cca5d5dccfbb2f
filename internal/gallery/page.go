package gallery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses an HTML body fragment under a detached container so
// every top-level node has a parent.
func ParseFragment(fragment []byte) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("fail to parse html fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return body, nil
}

// FindHosts lists gallery hosts in document order. Galleries nested inside
// another gallery are not looked for.
func FindHosts(root *html.Node) []*html.Node {
	hosts := make([]*html.Node, 0)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if IsHost(c) {
				hosts = append(hosts, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return hosts
}

// Enhance mounts every gallery of an HTML fragment, lets it resolve (and
// activate the external viewer if asked to), swaps in the rendered markup and
// unmounts it again.
func Enhance(ctx context.Context, fragment []byte, opts Options) ([]byte, error) {
	root, err := ParseFragment(fragment)
	if err != nil {
		return nil, err
	}

	for _, host := range FindHosts(root) {
		if err := enhanceHost(ctx, host, opts); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("fail to render enhanced fragment: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func enhanceHost(ctx context.Context, host *html.Node, opts Options) error {
	comp := NewComponent(host, NewEventTarget(), opts)
	comp.OnMount(ctx)
	defer comp.OnUnmount()

	if _, err := comp.Wait(ctx); err != nil {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("gallery activation did not finish, rendering it as is", slog.String("error", err.Error()))
		comp.Abandon(err)
	}

	var markup strings.Builder
	if err := comp.Render(&markup); err != nil {
		return err
	}

	parent := host.Parent
	scope := parent
	if scope.Type != html.ElementNode {
		scope = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup.String()), scope)
	if err != nil {
		return fmt.Errorf("fail to parse rendered gallery: %w", err)
	}

	for _, n := range nodes {
		parent.InsertBefore(n, host)
	}
	parent.RemoveChild(host)
	return nil
}

// Decorate lets fn edit every gallery host of an HTML fragment, i being the
// position of the host in document order, and renders the fragment again.
func Decorate(fragment []byte, fn func(i int, host *html.Node)) ([]byte, error) {
	root, err := ParseFragment(fragment)
	if err != nil {
		return nil, err
	}

	for i, host := range FindHosts(root) {
		fn(i, host)
	}

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("fail to render decorated fragment: %w", err)
		}
	}
	return buf.Bytes(), nil
}
