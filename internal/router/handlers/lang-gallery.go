package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/SayaAndy/image-gallery/internal/frontmatter"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &GalleryCatalogueHandler{})
}

type GalleryCatalogueHandler struct {
	router.BasicHandler
}

type catalogueEntry struct {
	Link        string
	Title       string
	Description string
	Tags        []string
	Published   time.Time
}

func (r *GalleryCatalogueHandler) Filter() (method string, path string) {
	return "GET", "/:lang/gallery"
}

func (r *GalleryCatalogueHandler) TemplatesToInject() []string {
	return []string{"layouts/general-page.html", "pages/gallery-catalogue.html"}
}

func (r *GalleryCatalogueHandler) ToCache() router.CacheSetting {
	return router.ByUrlOnly
}

func (r *GalleryCatalogueHandler) ToValidateLang() router.LangSetting {
	return router.InPath
}

func (r *GalleryCatalogueHandler) Render(c *fiber.Ctx, supplements *router.Supplements, lang string, templateMap fiber.Map) (statusCode int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := supplements.Config.Pages.Prefix + lang + "/"
	objects, err := supplements.Store.List(ctx, dir)
	if err != nil {
		return fiber.StatusInternalServerError, fmt.Errorf("failed to scan pages for '%s' lang: %w", lang, err)
	}

	entries := make([]catalogueEntry, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, dir)
		if !storage.IsMarkdown(obj) || strings.Contains(name, "/") {
			continue
		}

		content, err := storage.ReadAll(ctx, supplements.Store, obj.Key)
		if err != nil {
			slog.Warn("failed to read gallery page for catalogue", slog.String("page", obj.Key), slog.String("error", err.Error()))
			continue
		}
		metadata, _, err := frontmatter.ParseFrontmatter(content)
		if err != nil {
			slog.Warn("failed to parse gallery page frontmatter", slog.String("page", obj.Key), slog.String("error", err.Error()))
			continue
		}

		link := strings.TrimSuffix(path.Base(name), ".md")
		entry := catalogueEntry{Link: link, Title: link}
		if metadata != nil {
			entry.Title = metadata.Title
			entry.Description = metadata.Description
			entry.Tags = metadata.Tags
			entry.Published = metadata.PublishedTime
		}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b catalogueEntry) int {
		if order := b.Published.Compare(a.Published); order != 0 {
			return order
		}
		return strings.Compare(a.Title, b.Title)
	})

	templateMap["Title"] = supplements.Localization[lang].Page.Header
	templateMap["Pages"] = entries
	return fiber.StatusOK, nil
}
