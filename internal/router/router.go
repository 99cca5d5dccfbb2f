package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/gallerymd"
	"github.com/SayaAndy/image-gallery/internal/mailer"
	"github.com/SayaAndy/image-gallery/internal/probe"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/SayaAndy/image-gallery/internal/templatemanager"
	"github.com/SayaAndy/image-gallery/internal/warmer"
	"github.com/SayaAndy/image-gallery/locale"
	"github.com/SayaAndy/image-gallery/views"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

type CacheSetting int

const (
	Disabled CacheSetting = iota
	ByUrlOnly
	ByUrlAndQuery
)

type LangSetting int

const (
	NotRequired LangSetting = iota
	InPath
	InForm
)

var (
	Routes = make([]Route, 0)
)

type Route interface {
	Filter() (method string, path string)
	ToCache() CacheSetting
	CacheDuration() time.Duration
	ToValidateLang() LangSetting
	TemplatesToInject() []string
	Render(c *fiber.Ctx, supplements *Supplements, lang string, templateMap fiber.Map) (statusCode int, err error)
}

type Supplements struct {
	Config             *config.Config
	Store              storage.Store
	Prober             *probe.Prober
	Viewer             *gallery.ViewerAdapter
	Localization       map[string]*locale.LocaleConfig
	AvailableLanguages []config.AvailableLanguageConfig
	Sessions           *SessionRegistry
	PageCache          *ristretto.Cache[string, []byte]
	Warmer             *warmer.WarmerScheduler
	TemplateManager    *templatemanager.TemplateManager
	MarkdownRenderer   goldmark.Markdown
}

type Router struct {
	supplements *Supplements
	app         *fiber.App
}

func NewRouter(cfg *config.Config) (*Router, error) {
	supplements := &Supplements{
		Config:             cfg,
		AvailableLanguages: cfg.AvailableLanguages,
	}

	var err error

	supplements.Store, err = storage.NewStore(context.Background(), &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize storage: %w", err)
	}

	repo, err := probe.NewRepository(&cfg.Probe.Db)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize probe repository: %w", err)
	}

	supplements.Prober, err = probe.NewProber(supplements.Store, repo, &cfg.Probe, cfg.Gallery.MediaPrefix)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize prober: %w", err)
	}

	loader := gallery.NewScriptLoader(cfg.Gallery.External.ModuleURL, cfg.Gallery.External.SubmoduleURL, cfg.Gallery.External.Timeout)
	supplements.Viewer = gallery.NewViewerAdapter(supplements.Prober, loader, cfg.Probe.Concurrency, slog.Default())

	supplements.Localization = make(map[string]*locale.LocaleConfig, len(cfg.AvailableLanguages))
	for _, lang := range cfg.AvailableLanguages {
		localeCfg, err := locale.InitConfig(cfg.LocalePath + lang.LocFile)
		if err != nil {
			return nil, fmt.Errorf("fail to initialize a locale: %w", err)
		}
		supplements.Localization[lang.Name] = localeCfg
	}

	supplements.MarkdownRenderer = goldmark.New(
		goldmark.WithExtensions(
			gallerymd.NewGalleryExtension(cfg.Gallery.MediaPrefix),
			gallerymd.NewStylingExtension(),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	supplements.Sessions, err = NewSessionRegistry(cfg.Sessions.TTL, []byte(cfg.Sessions.Salt))
	if err != nil {
		return nil, fmt.Errorf("fail to initialize session registry: %w", err)
	}

	supplements.PageCache, err = ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e6,     // 1,000,000
		MaxCost:     1 << 29, // 512 MB
		BufferItems: 64,      // number of keys per Get buffer.
	})
	if err != nil {
		return nil, fmt.Errorf("fail to initialize page cache: %w", err)
	}

	var onReport warmer.ReportFunc
	if cfg.Pages.Report != nil {
		reportMailer, err := mailer.NewReportMailer(cfg.Pages.Report)
		if err != nil {
			return nil, fmt.Errorf("fail to initialize report mailer: %w", err)
		}
		onReport = reportMailer.SendReport
	}

	supplements.Warmer, err = warmer.NewWarmerScheduler(supplements.Store, supplements.Prober, supplements.MarkdownRenderer, cfg, onReport)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize warmer: %w", err)
	}

	supplements.TemplateManager, err = templatemanager.NewTemplateManager(views.FS)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize template manager: %w", err)
	}

	enablePrintRoutes := false
	if cfg.LogLevel <= slog.LevelDebug {
		enablePrintRoutes = true
	}

	app := fiber.New(fiber.Config{
		EnablePrintRoutes:     enablePrintRoutes,
		DisableStartupMessage: !enablePrintRoutes,
		ProxyHeader:           "X-Forwarded-For",
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, HX-Request, HX-Target, HX-Current-URL",
	}))

	return &Router{supplements, app}, nil
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Supplements() *Supplements {
	return r.supplements
}

func (r *Router) InitRoutes() (err error) {
	for _, route := range Routes {
		method, match := route.Filter()
		if strings.HasPrefix(match, gallerymd.DefaultMediaPrefix) {
			match = r.supplements.Config.Gallery.MediaPrefix + strings.TrimPrefix(match, gallerymd.DefaultMediaPrefix)
		}

		templates := route.TemplatesToInject()
		if len(templates) > 0 {
			if err = r.supplements.TemplateManager.Add(method+" "+match, templates...); err != nil {
				return fmt.Errorf("failed to add '%s %s' route into template manager: %w", method, match, err)
			}
		}

		currentRoute, currentMatch := route, match
		r.app.Add(method, match, func(c *fiber.Ctx) error {
			return r.handle(c, currentRoute, currentMatch)
		})
	}

	r.app.Static("/static", "./static")

	Routes = make([]Route, 0)

	return nil
}

func (r *Router) handle(c *fiber.Ctx, route Route, match string) error {
	lang, err := r.getAndValidateLang(c, route.ToValidateLang())
	if err != nil {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.ErrBadRequest.Code).SendString(err.Error())
	}

	method := c.Method()
	trimmedPath := strings.Trim(c.Path(), "/")
	queryString := string(c.Request().URI().QueryString())

	var cacheKey string
	switch route.ToCache() {
	case ByUrlOnly:
		cacheKey = fmt.Sprintf("%s.full-page.%s", method, trimmedPath)
	case ByUrlAndQuery:
		cacheKey = fmt.Sprintf("%s.full-page.%s.%s", method, trimmedPath, queryString)
	}

	if route.ToCache() != Disabled {
		if val, ok := r.supplements.PageCache.Get(cacheKey); val != nil && ok {
			c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
			return c.Status(fiber.StatusOK).Send(val)
		}
	}

	defaultMap := fiber.Map{
		"L":           r.supplements.Localization[lang],
		"Lang":        lang,
		"HtmxURL":     r.supplements.Config.Gallery.HtmxURL,
		"Path":        trimmedPath,
		"QueryString": queryString,
	}

	statusCode, err := route.Render(c, r.supplements, lang, defaultMap)
	if err != nil {
		slog.Error("failed to finish rendering a page",
			slog.Int("status_code", statusCode),
			slog.String("method", method),
			slog.String("path", c.Path()),
			slog.String("match", match),
			slog.String("query", queryString),
			slog.String("error", err.Error()),
		)
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(statusCode).SendString(err.Error())
	}

	if len(route.TemplatesToInject()) == 0 {
		if val, ok := defaultMap["Output"]; ok {
			return c.Status(statusCode).Send(val.([]byte))
		}
		return nil
	}

	content, err := r.supplements.TemplateManager.Render(method+" "+match, defaultMap)
	if err != nil {
		slog.Error("failed to generate div",
			slog.String("method", method),
			slog.String("path", c.Path()),
			slog.String("match", match),
			slog.String("query", queryString),
			slog.String("error", err.Error()),
		)
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.ErrInternalServerError.Code).SendString("failed to generate div")
	}

	if statusCode >= 200 && statusCode < 300 && route.ToCache() != Disabled {
		ttl := route.CacheDuration()
		if ttl <= 0 {
			ttl = r.supplements.Config.Pages.CacheDuration
		}
		r.supplements.PageCache.SetWithTTL(cacheKey, content, int64(len(content)), ttl)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(statusCode).Send(content)
}

func (r *Router) Listen(endpoint string) error {
	if err := r.app.Listen(endpoint); err != nil {
		return fmt.Errorf("error while running fiber server: %w", err)
	}
	return nil
}

func (r *Router) Close() (err error) {
	allErrors := make([]error, 0)
	if err = r.supplements.Warmer.Close(); err != nil {
		allErrors = append(allErrors, fmt.Errorf("fail to shutdown warmer scheduler: %w", err))
	}
	if err = r.app.Shutdown(); err != nil {
		allErrors = append(allErrors, fmt.Errorf("fail to shutdown fiber server: %w", err))
	}
	r.supplements.Sessions.Close()
	if err = r.supplements.Prober.Close(); err != nil {
		allErrors = append(allErrors, fmt.Errorf("fail to close prober: %w", err))
	}
	r.supplements.PageCache.Close()
	return errors.Join(allErrors...)
}

func (r *Router) getAndValidateLang(c *fiber.Ctx, langSetting LangSetting) (string, error) {
	var lang string

	switch langSetting {
	case NotRequired:
		return "", nil

	case InPath:
		lang = c.Params("lang")

	case InForm:
		lang = c.FormValue("lang")
	}

	for _, availableLang := range r.supplements.AvailableLanguages {
		if availableLang.Name == lang {
			return lang, nil
		}
	}
	return "", fmt.Errorf("lang value is invalid: '%s' is not considered an available language", lang)
}
