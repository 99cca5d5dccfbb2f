package gallery

import (
	"strings"

	"golang.org/x/net/html"
)

// ContentNodes returns the direct element children of the host in document order.
func ContentNodes(host *html.Node) []*html.Node {
	nodes := make([]*html.Node, 0)
	if host == nil {
		return nodes
	}
	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

// Resolve builds a fresh image sequence out of the content nodes. Images
// already wrapped for the external viewer are looked up inside their anchor. The full-size
// URL is captured from src before the thumbnail swap and is never overwritten
// once present, so calling Resolve again on the same nodes yields the same
// FullsizeURL sequence.
func Resolve(contentNodes []*html.Node) []*GalleryImage {
	images := make([]*GalleryImage, 0, len(contentNodes))

	for _, n := range contentNodes {
		if isViewerAnchor(n) {
			n = firstImage(n)
		}
		if !isImage(n) {
			continue
		}

		src, _ := getAttr(n, "src")
		src = strings.TrimSpace(src)

		fullsize, ok := getAttr(n, AttrFullsize)
		fullsize = strings.TrimSpace(fullsize)
		if !ok || fullsize == "" {
			if src == "" {
				continue
			}
			fullsize = src
			setAttr(n, AttrFullsize, fullsize)
		}

		if thumb, _ := getAttr(n, AttrThumb); strings.TrimSpace(thumb) != "" {
			thumb = strings.TrimSpace(thumb)
			if thumb != src {
				setAttr(n, "src", thumb)
			}
			src = thumb
		}
		if src == "" {
			src = fullsize
			setAttr(n, "src", src)
		}

		alt, _ := getAttr(n, "alt")
		images = append(images, &GalleryImage{
			Node:        n,
			DisplayURL:  src,
			FullsizeURL: fullsize,
			AltText:     alt,
		})
	}

	return images
}

func firstImage(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isImage(c) {
			return c
		}
	}
	return nil
}

// IndexOf finds the position of node in images by identity.
func IndexOf(images []*GalleryImage, node *html.Node) int {
	for i, img := range images {
		if img.Node == node {
			return i
		}
	}
	return -1
}
