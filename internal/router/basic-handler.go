package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type BasicHandler struct{}

var _ Route = &BasicHandler{}

func (r *BasicHandler) Filter() (method string, path string) {
	panic("handler did not implement Filter method")
}

func (r *BasicHandler) ToCache() CacheSetting {
	return Disabled
}

// CacheDuration of zero falls back to the configured page cache duration.
func (r *BasicHandler) CacheDuration() time.Duration {
	return 0
}

func (r *BasicHandler) ToValidateLang() LangSetting {
	return NotRequired
}

func (r *BasicHandler) TemplatesToInject() []string {
	return []string{}
}

func (r *BasicHandler) Render(c *fiber.Ctx, supplements *Supplements, lang string, templateMap fiber.Map) (statusCode int, err error) {
	panic("handler did not implement Render method")
}
