package handlers

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &GalleryPageHandler{})
}

type GalleryPageHandler struct {
	router.BasicHandler
}

func (r *GalleryPageHandler) Filter() (method string, path string) {
	return "GET", "/:lang/gallery/:page"
}

func (r *GalleryPageHandler) TemplatesToInject() []string {
	return []string{"layouts/general-page.html", "pages/gallery-page.html"}
}

func (r *GalleryPageHandler) ToCache() router.CacheSetting {
	return router.ByUrlOnly
}

func (r *GalleryPageHandler) ToValidateLang() router.LangSetting {
	return router.InPath
}

func (r *GalleryPageHandler) Render(c *fiber.Ctx, supplements *router.Supplements, lang string, templateMap fiber.Map) (statusCode int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), activationTimeout(supplements))
	defer cancel()

	page, err := supplements.ReadPage(ctx, lang, c.Params("page"))
	if err != nil {
		return fiber.StatusNotFound, fmt.Errorf("failed to find '%s' gallery page: %w", c.Params("page"), err)
	}

	enhanced, err := gallery.Enhance(ctx, page.HTML, supplements.GalleryOptions(lang, page.Metadata))
	if err != nil {
		return fiber.StatusInternalServerError, fmt.Errorf("failed to mount galleries of '%s': %w", page.Link, err)
	}

	enhanced, err = startSessions(enhanced, lang, page.Link)
	if err != nil {
		return fiber.StatusInternalServerError, fmt.Errorf("failed to attach sessions to galleries of '%s': %w", page.Link, err)
	}

	templateMap["Title"] = page.Metadata.Title
	templateMap["Description"] = page.Metadata.Description
	templateMap["ParsedMarkdown"] = template.HTML(enhanced)
	if !page.Metadata.PublishedTime.IsZero() {
		templateMap["PublishedDate"] = page.Metadata.PublishedTime.Format("2006-01-02 15:04:05 -07:00")
	}

	return fiber.StatusOK, nil
}

// activationTimeout bounds how long a request waits for image probes and the
// viewer module check.
func activationTimeout(supplements *router.Supplements) time.Duration {
	timeout := supplements.Config.Probe.Timeout + supplements.Config.Gallery.External.Timeout
	if timeout <= 0 {
		return 30 * time.Second
	}
	return timeout
}
