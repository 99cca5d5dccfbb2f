package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &PostSessionClickHandler{})
}

type PostSessionClickHandler struct {
	BasicSessionHandler
}

func (r *PostSessionClickHandler) Filter() (method string, path string) {
	return "POST", "/api/v1/session/:id/click"
}

func (r *PostSessionClickHandler) Render(c *fiber.Ctx, supplements *router.Supplements, _ string, templateMap fiber.Map) (statusCode int, err error) {
	index, err := strconv.Atoi(c.FormValue("index"))
	if err != nil {
		return fiber.StatusBadRequest, fmt.Errorf("invalid index value '%s'", c.FormValue("index"))
	}

	return actOnSession(c, supplements, templateMap, func(_ context.Context, comp *gallery.Component, _ *gallery.EventTarget) (int, error) {
		if err := comp.ClickAt(index); err != nil {
			return componentStatus(err), err
		}
		return fiber.StatusOK, nil
	})
}
