package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &GetProbeHandler{})
}

type GetProbeHandler struct {
	router.BasicHandler
}

func (r *GetProbeHandler) Filter() (method string, path string) {
	return "GET", "/api/v1/probe"
}

func (r *GetProbeHandler) Render(c *fiber.Ctx, supplements *router.Supplements, _ string, _ fiber.Map) (statusCode int, err error) {
	src := c.Query("src")
	if src == "" {
		return fiber.StatusBadRequest, fmt.Errorf("'src' query parameter is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), activationTimeout(supplements))
	defer cancel()

	dims, err := supplements.Prober.Probe(ctx, src)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.StatusNotFound, fmt.Errorf("failed to probe '%s': %w", src, err)
		}
		return fiber.StatusUnprocessableEntity, fmt.Errorf("failed to probe '%s': %w", src, err)
	}

	return fiber.StatusOK, c.Status(fiber.StatusOK).JSON(dims)
}
