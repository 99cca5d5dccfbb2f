package gallery

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	HostTag = "image-gallery"

	AttrFullsize = "data-fullsize"
	AttrThumb    = "data-thumb"
	AttrWidth    = "width"
	AttrViewer   = "viewer"

	AttrViewerWidth  = "data-pswp-width"
	AttrViewerHeight = "data-pswp-height"
)

// GalleryImage is one entry of a resolved image sequence.
type GalleryImage struct {
	Node            *html.Node
	DisplayURL      string
	FullsizeURL     string
	AltText         string
	IntrinsicWidth  int
	IntrinsicHeight int
}

func (img *GalleryImage) HasDimensions() bool {
	return img.IntrinsicWidth > 0 && img.IntrinsicHeight > 0
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func isImage(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && (n.DataAtom == atom.Img || n.Data == "img")
}

// IsHost reports whether n is an <image-gallery> element.
func IsHost(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == HostTag
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Attr reads an attribute without a namespace.
func Attr(n *html.Node, key string) (string, bool) {
	return getAttr(n, key)
}

// SetAttr adds or replaces an attribute without a namespace.
func SetAttr(n *html.Node, key, val string) {
	setAttr(n, key, val)
}
