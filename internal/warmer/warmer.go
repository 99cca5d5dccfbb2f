package warmer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/SayaAndy/image-gallery/internal/frontmatter"
	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/SayaAndy/image-gallery/internal/gallerymd"
	"github.com/SayaAndy/image-gallery/internal/storage"
	"github.com/go-co-op/gocron/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"
)

type Report struct {
	Pages   int
	Images  int
	Probed  int
	Failed  int
	Skipped int

	FailedSources []string
}

// ReportFunc receives the outcome of every scheduled scan.
type ReportFunc func(ctx context.Context, report Report) error

// WarmerScheduler walks the gallery pages of every language and probes their
// images so the first render of a page finds dimensions ready.
type WarmerScheduler struct {
	s           gocron.Scheduler
	store       storage.Store
	prober      gallery.DimensionProber
	md          goldmark.Markdown
	prefix      string
	mediaPrefix string
	langs       []string
	concurrency int
	onReport    ReportFunc

	mu    sync.Mutex
	known map[string]int64
}

func NewWarmerScheduler(store storage.Store, prober gallery.DimensionProber, md goldmark.Markdown, cfg *config.Config, onReport ReportFunc) (*WarmerScheduler, error) {
	langs := make([]string, 0, len(cfg.AvailableLanguages))
	for _, lang := range cfg.AvailableLanguages {
		langs = append(langs, lang.Name)
	}

	ws := &WarmerScheduler{
		store:       store,
		prober:      prober,
		md:          md,
		prefix:      cfg.Pages.Prefix,
		mediaPrefix: cfg.Gallery.MediaPrefix,
		langs:       langs,
		concurrency: cfg.Probe.Concurrency,
		onReport:    onReport,
		known:       make(map[string]int64),
	}
	if cfg.Pages.WarmupCron == "" {
		return ws, nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create new scheduler: %w", err)
	}
	ws.s = s

	_, err = s.NewJob(
		gocron.CronJob(cfg.Pages.WarmupCron, false),
		gocron.NewTask(func(ws *WarmerScheduler) {
			report, err := ws.Scan(context.Background())
			if err != nil {
				slog.Error("failed to execute warming up cron job", slog.String("error", err.Error()))
				return
			}
			slog.Info("warmed up gallery pages",
				slog.Int("pages", report.Pages),
				slog.Int("images", report.Images),
				slog.Int("probed", report.Probed),
				slog.Int("failed", report.Failed),
				slog.Int("skipped", report.Skipped),
			)
			if ws.onReport == nil {
				return
			}
			if err = ws.onReport(context.Background(), report); err != nil {
				slog.Error("failed to deliver warming up report", slog.String("error", err.Error()))
			}
		}, ws),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule warming up job: %w", err)
	}

	s.Start()
	return ws, nil
}

// Scan probes the images of pages that are new or changed since the last scan.
func (ws *WarmerScheduler) Scan(ctx context.Context) (report Report, err error) {
	var probed atomic.Int32
	var failedMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if ws.concurrency > 0 {
		g.SetLimit(ws.concurrency)
	}

	for _, lang := range ws.langs {
		objects, err := ws.store.List(ctx, ws.prefix+lang+"/")
		if err != nil {
			_ = g.Wait()
			return report, fmt.Errorf("failed to scan gallery pages on '%s': %w", lang, err)
		}

		for _, obj := range objects {
			if !storage.IsMarkdown(obj) {
				continue
			}
			if !ws.changed(obj) {
				report.Skipped++
				continue
			}
			report.Pages++

			sources, err := ws.sources(ctx, obj.Key)
			if err != nil {
				slog.Warn("failed to read gallery page", slog.String("page", obj.Key), slog.String("error", err.Error()))
				ws.forget(obj.Key)
				continue
			}

			key := obj.Key
			for _, src := range sources {
				report.Images++
				g.Go(func() error {
					if _, err := ws.prober.Probe(gctx, src); err != nil {
						slog.Debug("failed to warm up image", slog.String("src", src), slog.String("error", err.Error()))
						failedMu.Lock()
						report.FailedSources = append(report.FailedSources, src)
						failedMu.Unlock()
						// the next scan retries the whole page
						ws.forget(key)
						return nil
					}
					probed.Add(1)
					return nil
				})
			}
		}
	}

	err = g.Wait()
	report.Probed = int(probed.Load())
	report.Failed = len(report.FailedSources)
	return report, err
}

func (ws *WarmerScheduler) sources(ctx context.Context, key string) ([]string, error) {
	content, err := storage.ReadAll(ctx, ws.store, key)
	if err != nil {
		return nil, err
	}

	_, markdown, err := frontmatter.ParseFrontmatter(content)
	if err != nil {
		return nil, err
	}

	doc := ws.md.Parser().Parse(text.NewReader(markdown))

	sources := []string{}
	seen := make(map[string]struct{})
	for _, block := range gallerymd.Collect(doc) {
		for _, img := range block.Images {
			src := gallerymd.MediaURL(ws.mediaPrefix, img.URL)
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func (ws *WarmerScheduler) changed(obj *storage.Object) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	key := strings.TrimPrefix(obj.Key, ws.prefix)
	if size, ok := ws.known[key]; ok && size == obj.Size {
		return false
	}
	ws.known[key] = obj.Size
	return true
}

func (ws *WarmerScheduler) forget(key string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	delete(ws.known, strings.TrimPrefix(key, ws.prefix))
}

func (ws *WarmerScheduler) Close() error {
	if ws.s == nil {
		return nil
	}
	return ws.s.Shutdown()
}
