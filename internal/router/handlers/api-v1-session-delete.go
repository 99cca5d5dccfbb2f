package handlers

import (
	"errors"

	"github.com/SayaAndy/image-gallery/internal/router"
	"github.com/gofiber/fiber/v2"
)

func init() {
	router.Routes = append(router.Routes, &DeleteSessionHandler{})
}

type DeleteSessionHandler struct {
	router.BasicHandler
}

func (r *DeleteSessionHandler) Filter() (method string, path string) {
	return "DELETE", "/api/v1/session/:id"
}

func (r *DeleteSessionHandler) TemplatesToInject() []string {
	return []string{"partials/gallery-session-ended.html"}
}

func (r *DeleteSessionHandler) Render(c *fiber.Ctx, supplements *router.Supplements, _ string, templateMap fiber.Map) (statusCode int, err error) {
	session, statusCode, err := lookupSession(c, supplements)
	if err != nil {
		return statusCode, err
	}

	if err = supplements.Sessions.Delete(session.ID, c.IP()); err != nil {
		if errors.Is(err, router.ErrSessionNotFound) {
			return fiber.StatusNotFound, err
		}
		return fiber.StatusInternalServerError, err
	}

	templateMap["L"] = supplements.Localization[session.Lang]
	return fiber.StatusOK, nil
}
