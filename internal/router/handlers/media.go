package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SayaAndy/image-gallery/internal/probe"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &MediaHandler{})
}

// MediaHandler streams gallery images out of storage. The path is rebased onto
// the configured media prefix when routes are registered.
type MediaHandler struct {
	router.BasicHandler
}

func (r *MediaHandler) Filter() (method string, path string) {
	return "GET", "/media/*"
}

func (r *MediaHandler) Render(c *fiber.Ctx, supplements *router.Supplements, _ string, _ fiber.Map) (statusCode int, err error) {
	key := probe.MediaKey("", c.Params("*"))
	if key == "" {
		return fiber.StatusNotFound, fmt.Errorf("media key is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	reader, obj, err := supplements.Store.Open(ctx, key)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.StatusNotFound, fmt.Errorf("server did not find '%s' media", key)
		}
		return fiber.StatusBadGateway, fmt.Errorf("failed to open '%s' media: %w", key, err)
	}

	c.Set(fiber.HeaderContentType, obj.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	c.Status(fiber.StatusOK)
	c.Context().SetBodyStream(&cancelOnClose{ReadCloser: reader, cancel: cancel}, int(obj.Size))
	return fiber.StatusOK, nil
}
