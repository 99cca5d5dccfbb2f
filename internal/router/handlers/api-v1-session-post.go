package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &PostSessionHandler{})
}

// PostSessionHandler mounts one gallery of a page and keeps it alive as a
// session the client drives with follow-up requests.
type PostSessionHandler struct {
	router.BasicHandler
}

func (r *PostSessionHandler) Filter() (method string, path string) {
	return "POST", "/api/v1/session"
}

func (r *PostSessionHandler) TemplatesToInject() []string {
	return sessionTemplates
}

func (r *PostSessionHandler) ToValidateLang() router.LangSetting {
	return router.InForm
}

func (r *PostSessionHandler) Render(c *fiber.Ctx, supplements *router.Supplements, lang string, templateMap fiber.Map) (statusCode int, err error) {
	link := c.FormValue("page")
	if link == "" {
		return fiber.StatusBadRequest, fmt.Errorf("'page' value is empty")
	}

	galleryIndex, err := strconv.Atoi(c.FormValue("gallery", "0"))
	if err != nil || galleryIndex < 0 {
		return fiber.StatusBadRequest, fmt.Errorf("invalid gallery value '%s'", c.FormValue("gallery"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), activationTimeout(supplements))
	defer cancel()

	page, err := supplements.ReadPage(ctx, lang, link)
	if err != nil {
		return fiber.StatusNotFound, fmt.Errorf("failed to find '%s' gallery page: %w", link, err)
	}

	session, statusCode, err := mountSession(ctx, supplements, c.IP(), lang, page, galleryIndex, templateMap)
	if err != nil {
		return statusCode, err
	}

	c.Set("HX-Trigger", fmt.Sprintf(`{"gallerySession": %q}`, session.ID))
	c.Set(fiber.HeaderLocation, "/api/v1/session/"+session.ID)
	return fiber.StatusCreated, nil
}

// mountSession mounts one gallery of page and registers it for ip. A session
// that cannot render its first fragment is deleted again before returning.
func mountSession(ctx context.Context, supplements *router.Supplements, ip, lang string, page *router.GalleryPage, galleryIndex int, templateMap fiber.Map) (*router.Session, int, error) {
	root, err := gallery.ParseFragment(page.HTML)
	if err != nil {
		return nil, fiber.StatusInternalServerError, err
	}
	hosts := gallery.FindHosts(root)
	if galleryIndex >= len(hosts) {
		return nil, fiber.StatusNotFound, fmt.Errorf("page '%s' has %d galleries, no gallery %d", page.Link, len(hosts), galleryIndex)
	}

	events := gallery.NewEventTarget()
	comp := gallery.NewComponent(hosts[galleryIndex], events, supplements.GalleryOptions(lang, page.Metadata))
	// activation outlives the request, the guard drops its results after unmount
	comp.OnMount(context.Background())

	session := supplements.Sessions.Create(ip, lang, page.Link, galleryIndex, comp, events)

	if err = session.Do(func(comp *gallery.Component, _ *gallery.EventTarget) error {
		return fillSessionMap(ctx, session, comp, supplements, templateMap)
	}); err != nil {
		if deleteErr := supplements.Sessions.Delete(session.ID, ip); deleteErr != nil {
			err = errors.Join(err, deleteErr)
		}
		return session, fiber.StatusInternalServerError, err
	}

	return session, fiber.StatusCreated, nil
}
