package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/html"
)

var sessionTemplates = []string{"partials/gallery-session.html"}

// BasicSessionHandler covers the routes acting on an existing gallery session.
type BasicSessionHandler struct {
	router.BasicHandler
}

func (r *BasicSessionHandler) TemplatesToInject() []string {
	return sessionTemplates
}

func lookupSession(c *fiber.Ctx, supplements *router.Supplements) (*router.Session, int, error) {
	session, err := supplements.Sessions.Get(c.Params("id"), c.IP())
	switch {
	case errors.Is(err, router.ErrSessionNotFound):
		return nil, fiber.StatusNotFound, err
	case errors.Is(err, router.ErrSessionForbidden):
		return nil, fiber.StatusForbidden, err
	case err != nil:
		return nil, fiber.StatusInternalServerError, err
	}
	return session, fiber.StatusOK, nil
}

// actOnSession runs action against the session component and renders the
// session fragment right after it, under the same lock.
func actOnSession(c *fiber.Ctx, supplements *router.Supplements, templateMap fiber.Map, action func(ctx context.Context, comp *gallery.Component, events *gallery.EventTarget) (int, error)) (int, error) {
	session, statusCode, err := lookupSession(c, supplements)
	if err != nil {
		return statusCode, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), activationTimeout(supplements))
	defer cancel()

	statusCode = fiber.StatusOK
	err = session.Do(func(comp *gallery.Component, events *gallery.EventTarget) error {
		if action != nil {
			code, actionErr := action(ctx, comp, events)
			if actionErr != nil {
				statusCode = code
				return actionErr
			}
		}
		return fillSessionMap(ctx, session, comp, supplements, templateMap)
	})
	if err != nil {
		if statusCode < 400 {
			statusCode = fiber.StatusInternalServerError
		}
		return statusCode, err
	}
	return statusCode, nil
}

func fillSessionMap(ctx context.Context, session *router.Session, comp *gallery.Component, supplements *router.Supplements, templateMap fiber.Map) error {
	if _, err := comp.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for gallery activation: %w", err)
	}

	var fragment strings.Builder
	if err := comp.RenderControlled(&fragment, sessionControls(session.ID)); err != nil {
		return fmt.Errorf("failed to render gallery: %w", err)
	}

	templateMap["SessionID"] = session.ID
	templateMap["Lang"] = session.Lang
	templateMap["L"] = supplements.Localization[session.Lang]
	templateMap["Fragment"] = template.HTML(fragment.String())
	templateMap["Snapshot"] = comp.Snapshot()
	return nil
}

func componentStatus(err error) int {
	switch {
	case errors.Is(err, gallery.ErrOutOfRange), errors.Is(err, gallery.ErrNotInGallery):
		return fiber.StatusBadRequest
	case errors.Is(err, gallery.ErrNotMounted):
		return fiber.StatusGone
	}
	return fiber.StatusInternalServerError
}

// startSessions makes every overlay gallery of a rendered page replace itself
// with an interactive session as soon as the page loads. Galleries using the
// external viewer are driven by the viewer and are left alone.
func startSessions(fragment []byte, lang, link string) ([]byte, error) {
	return gallery.Decorate(fragment, func(i int, host *html.Node) {
		if viewer, _ := gallery.Attr(host, gallery.AttrViewer); viewer != gallery.StrategyOverlay.String() {
			return
		}
		vals, err := json.Marshal(map[string]string{"lang": lang, "page": link, "gallery": strconv.Itoa(i)})
		if err != nil {
			return
		}
		gallery.SetAttr(host, "hx-post", "/api/v1/session")
		gallery.SetAttr(host, "hx-trigger", "load")
		gallery.SetAttr(host, "hx-swap", "outerHTML")
		gallery.SetAttr(host, "hx-vals", string(vals))
	})
}

// sessionControls points the grid images, the dialog backdrop and the close
// button of a session fragment at the session routes.
func sessionControls(id string) *gallery.Controls {
	base := "/api/v1/session/" + id
	return &gallery.Controls{
		Image: func(i int) []html.Attribute {
			return []html.Attribute{
				{Key: "hx-post", Val: base + "/click"},
				{Key: "hx-trigger", Val: "click"},
				{Key: "hx-vals", Val: fmt.Sprintf(`{"index": "%d"}`, i)},
			}
		},
		Backdrop: []html.Attribute{
			{Key: "hx-post", Val: base + "/close"},
			{Key: "hx-trigger", Val: "click[target===this]"},
			{Key: "hx-vals", Val: `{"via": "backdrop"}`},
		},
		Close: []html.Attribute{
			{Key: "hx-post", Val: base + "/close"},
			{Key: "hx-vals", Val: `{"via": "control"}`},
		},
	}
}
