package handlers

import (
	"context"
	"fmt"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &PostSessionCloseHandler{})
}

type PostSessionCloseHandler struct {
	BasicSessionHandler
}

func (r *PostSessionCloseHandler) Filter() (method string, path string) {
	return "POST", "/api/v1/session/:id/close"
}

func (r *PostSessionCloseHandler) Render(c *fiber.Ctx, supplements *router.Supplements, _ string, templateMap fiber.Map) (statusCode int, err error) {
	var closeVia func(comp *gallery.Component)
	switch via := c.FormValue("via", "control"); via {
	case "backdrop":
		closeVia = func(comp *gallery.Component) { comp.ClickSurface(gallery.RegionBackdrop) }
	case "content":
		closeVia = func(comp *gallery.Component) { comp.ClickSurface(gallery.RegionContent) }
	case "control":
		closeVia = func(comp *gallery.Component) { comp.CloseControl() }
	case "dismiss":
		closeVia = func(comp *gallery.Component) { comp.Dismiss() }
	default:
		return fiber.StatusBadRequest, fmt.Errorf("invalid via value '%s': expect backdrop, content, control or dismiss", via)
	}

	return actOnSession(c, supplements, templateMap, func(_ context.Context, comp *gallery.Component, _ *gallery.EventTarget) (int, error) {
		closeVia(comp)
		return fiber.StatusOK, nil
	})
}
