// Package app wires configuration into the running application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"techbriefing/internal/briefing"
	"techbriefing/internal/config"
	"techbriefing/internal/domain"
	"techbriefing/internal/infrastructure/ai"
	"techbriefing/internal/infrastructure/notify"
	"techbriefing/internal/infrastructure/source"
	"techbriefing/internal/infrastructure/storage"
	"techbriefing/internal/logging"
	"techbriefing/internal/ports"
	"techbriefing/internal/scheduler"
	"techbriefing/internal/usecase"
)

// alertWindow suppresses duplicate alerts for this long.
const alertWindow = 6 * time.Hour

// Application owns the wired components and the job schedule.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	pool *pgxpool.Pool
	rdb  *redis.Client

	registry   *source.Registry
	collectors map[string]*usecase.CollectPosts
	processor  *usecase.ProcessPosts
	briefer    *usecase.GenerateBriefing
	health     *usecase.HealthMonitor
	categories ports.CategoryRepository
	alerts     ports.Notifier

	sched *scheduler.Scheduler
}

// New builds a fully wired application. It connects to Postgres
// eagerly so a bad DSN fails at startup, not at the first job.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	pool, err := storage.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	posts := storage.NewPostRepository(pool)
	runs := storage.NewRunRepository(pool)
	briefings := storage.NewBriefingRepository(pool)
	categories := storage.NewCategoryRepository(pool)

	var channels notify.Multi
	if cfg.Email.Enabled {
		channels = append(channels, notify.NewEmailNotifier(cfg.Email, logger.With("component", "notify.email")))
	}
	if cfg.Telegram.BotToken != "" {
		channels = append(channels, notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	alerts := notify.NewThrottled(channels, rdb, alertWindow, logger.With("component", "notify.throttle"))

	processor := ai.NewProcessor(
		ai.NewOpenAIClient(cfg.OpenAI.APIKey),
		cfg.OpenAI,
		cfg.Processing,
		logger.With("component", "ai"),
	)

	registry := source.NewRegistry()
	collectors := map[string]*usecase.CollectPosts{}
	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		adapter, err := buildAdapter(src, logger)
		if err != nil {
			return nil, err
		}
		registry.Register(adapter)
		collectors[src.Name] = usecase.NewCollectPosts(
			adapter, posts, runs, nil, logger.With("component", "collect", "source", src.Name))
	}

	compiler := briefing.NewCompiler(cfg.Briefing, categoriesFromConfig(cfg.Categories))

	app := &Application{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		rdb:        rdb,
		registry:   registry,
		collectors: collectors,
		processor: usecase.NewProcessPosts(
			posts, processor, cfg.Processing.UnprocessedLimit, logger.With("component", "process")),
		briefer: usecase.NewGenerateBriefing(
			posts, briefings, processor, compiler, channels,
			cfg.Processing.UnprocessedLimit, cfg.Processing.MinImportance,
			logger.With("component", "briefing")),
		health: usecase.NewHealthMonitor(
			runs, alerts, registry.Names(), cfg.Scheduler.FailureThreshold,
			logger.With("component", "health")),
		categories: categories,
		alerts:     alerts,
		sched:      scheduler.New(logger.With("component", "scheduler")),
	}
	app.registerJobs()
	return app, nil
}

func buildAdapter(src config.SourceConfig, logger *slog.Logger) (ports.SourceAdapter, error) {
	switch src.Kind {
	case "rss":
		return source.NewRSSAdapter(src.Name, src.URL, logger.With("component", "source.rss", "source", src.Name)), nil
	case "board":
		return source.NewBoardAdapter(src.Name, src.URL, src.Options, logger.With("component", "source.board", "source", src.Name)), nil
	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", src.Name, src.Kind)
	}
}

func categoriesFromConfig(entries []config.CategoryConfig) []domain.Category {
	categories := make([]domain.Category, 0, len(entries))
	for _, e := range entries {
		categories = append(categories, domain.Category{
			Name:     e.Name,
			NameKo:   e.NameKo,
			Color:    e.Color,
			Keywords: e.Keywords,
		})
	}
	return categories
}

func (a *Application) registerJobs() {
	grace := a.cfg.Scheduler.MisfireGrace()

	for _, src := range a.cfg.Sources {
		if !src.Enabled {
			continue
		}
		name := src.Name
		a.sched.Add("collect_"+name, scheduler.IntervalTrigger{Every: src.Interval()}, grace,
			func(ctx context.Context) { a.collectOne(ctx, name) })
	}

	a.sched.Add("process_posts", scheduler.HourlyTrigger{Minute: a.cfg.Scheduler.ProcessingMinute}, grace,
		func(ctx context.Context) {
			if _, err := a.processor.Execute(ctx); err != nil {
				a.logger.Error("processing job failed", "error", err)
			}
		})

	hour, minute := parseClock(a.cfg.Briefing.DailyTime, 6, 30)
	a.sched.Add("daily_briefing",
		scheduler.DailyTrigger{Hour: hour, Minute: minute, Loc: a.cfg.App.Location()}, grace,
		func(ctx context.Context) { a.dailyBriefing(ctx) })

	healthEvery := time.Duration(a.cfg.Scheduler.HealthIntervalMin) * time.Minute
	if healthEvery <= 0 {
		healthEvery = 5 * time.Minute
	}
	a.sched.Add("health_check", scheduler.IntervalTrigger{Every: healthEvery}, grace,
		func(ctx context.Context) { a.health.Execute(ctx) })
}

func (a *Application) collectOne(ctx context.Context, name string) {
	collector, ok := a.collectors[name]
	if !ok {
		return
	}
	if _, err := collector.Execute(ctx); err != nil {
		if domain.IsSessionExpired(err) {
			title := fmt.Sprintf("%s session expired", name)
			if alertErr := a.alerts.SendAlert(ctx, title, err.Error()); alertErr != nil {
				a.logger.Error("session alert failed", "source", name, "error", alertErr)
			}
			return
		}
		a.logger.Error("collection job failed", "source", name, "error", err)
	}
}

func (a *Application) dailyBriefing(ctx context.Context) {
	end := time.Now().In(a.cfg.App.Location())
	b, err := a.briefer.Execute(ctx, end.Add(-24*time.Hour), end)
	if err != nil {
		a.logger.Error("briefing job failed", "error", err)
		return
	}
	if b.TotalItems == 0 {
		a.logger.Info("nothing to brief, delivery skipped")
		return
	}
	if !a.briefer.Send(ctx, b) {
		a.logger.Error("briefing delivery failed", "briefing", b.ID)
	}
}

// Serve seeds the taxonomy and runs the schedule until ctx ends. With
// noScheduler it only verifies the wiring and returns.
func (a *Application) Serve(ctx context.Context, noScheduler bool) error {
	if err := a.seedCategories(ctx); err != nil {
		return err
	}
	a.logger.Info("application ready",
		"sources", strings.Join(a.registry.Names(), ","),
		"timezone", a.cfg.App.Location().String())

	if noScheduler {
		return nil
	}
	return a.sched.Run(ctx)
}

// CollectNow runs one synchronous collection cycle for the given
// sources, or for every registered source when none are named.
func (a *Application) CollectNow(ctx context.Context, sources []string) (map[string]domain.CollectionRun, error) {
	if len(sources) == 0 {
		sources = a.registry.Names()
	}

	results := map[string]domain.CollectionRun{}
	for _, name := range sources {
		collector, ok := a.collectors[name]
		if !ok {
			return results, fmt.Errorf("source %s is not registered", name)
		}
		run, err := collector.Execute(ctx)
		results[name] = run
		if err != nil {
			a.logger.Error("collection failed", "source", name, "error", err)
		}
	}
	return results, nil
}

func (a *Application) seedCategories(ctx context.Context) error {
	for _, c := range categoriesFromConfig(a.cfg.Categories) {
		if err := a.categories.Upsert(ctx, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

// Close releases the database and cache connections.
func (a *Application) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// parseClock parses "HH:MM", falling back to the given defaults on any
// malformed input.
func parseClock(v string, defHour, defMinute int) (int, int) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return defHour, defMinute
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return defHour, defMinute
	}
	return hour, minute
}
