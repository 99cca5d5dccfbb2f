package handlers

import (
	"context"
	"fmt"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &PutSessionWidthHandler{})
}

// PutSessionWidthHandler changes the width attribute of the mounted gallery,
// which rebuilds it. Invalid values fall back to the default width.
type PutSessionWidthHandler struct {
	BasicSessionHandler
}

func (r *PutSessionWidthHandler) Filter() (method string, path string) {
	return "PUT", "/api/v1/session/:id/width"
}

func (r *PutSessionWidthHandler) Render(c *fiber.Ctx, supplements *router.Supplements, _ string, templateMap fiber.Map) (statusCode int, err error) {
	width := c.FormValue("width")
	if width == "" {
		return fiber.StatusBadRequest, fmt.Errorf("'width' value is empty")
	}

	return actOnSession(c, supplements, templateMap, func(_ context.Context, comp *gallery.Component, _ *gallery.EventTarget) (int, error) {
		comp.OnConfigChange(context.Background(), gallery.AttrWidth, width)
		return fiber.StatusOK, nil
	})
}
