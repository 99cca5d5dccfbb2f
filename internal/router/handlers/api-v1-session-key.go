package handlers

import (
	"context"
	"fmt"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &PostSessionKeyHandler{})
}

// PostSessionKeyHandler delivers a key press to the document the session's
// gallery listens on. Escape is the dialog's own cancel gesture.
type PostSessionKeyHandler struct {
	BasicSessionHandler
}

func (r *PostSessionKeyHandler) Filter() (method string, path string) {
	return "POST", "/api/v1/session/:id/key"
}

func (r *PostSessionKeyHandler) Render(c *fiber.Ctx, supplements *router.Supplements, _ string, templateMap fiber.Map) (statusCode int, err error) {
	key := c.FormValue("key")
	if key == "" {
		return fiber.StatusBadRequest, fmt.Errorf("'key' value is empty")
	}

	return actOnSession(c, supplements, templateMap, func(_ context.Context, comp *gallery.Component, events *gallery.EventTarget) (int, error) {
		if key == "Escape" {
			comp.Dismiss()
			return fiber.StatusOK, nil
		}
		events.DispatchKey(key)
		return fiber.StatusOK, nil
	})
}
