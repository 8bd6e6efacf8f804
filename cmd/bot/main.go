// Package main is the entry point of the job board Telegram bot.
//
// The process wires the layers together:
//   - Domain: users, seekers, recruiters, companies and vacancies
//   - Application: commands, queries, the search cursor and event handlers
//   - Infrastructure: PostgreSQL, MongoDB, Neo4j, Redis, the Bot API client
//   - Interface: Telegram handlers and the health/webhook HTTP server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweethome/vacancies-bot/config"
	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/eventhandler"
	"github.com/sweethome/vacancies-bot/internal/application/query"
	"github.com/sweethome/vacancies-bot/internal/application/search"
	"github.com/sweethome/vacancies-bot/internal/container"
	"github.com/sweethome/vacancies-bot/internal/domain/shared"
	tgapi "github.com/sweethome/vacancies-bot/internal/infrastructure/external/telegram"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/messaging"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/scheduler"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/sweethome/vacancies-bot/internal/interface/http"
	"github.com/sweethome/vacancies-bot/internal/interface/http/handlers"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram"
	"github.com/sweethome/vacancies-bot/internal/interface/telegram/handler"
	"github.com/sweethome/vacancies-bot/pkg/circuitbreaker"
	"github.com/sweethome/vacancies-bot/pkg/logger"
	"github.com/sweethome/vacancies-bot/pkg/retry"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *envFile); err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled or a component
// fails.
func run(ctx context.Context, envFile string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGER
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	log.Info("starting vacancies bot",
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
		"storage", cfg.Storage,
		"webhook", cfg.Telegram.UseWebhook,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORES
	// ─────────────────────────────────────────────────────────────────────────
	st, err := container.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		st.Close(closeCtx)
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. TELEGRAM CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	clientCfg := tgapi.DefaultClientConfig(cfg.Telegram.Token)
	if cfg.Telegram.BaseURL != "" {
		clientCfg.BaseURL = cfg.Telegram.BaseURL
	}
	if cfg.Telegram.PollingTimeout > 0 {
		clientCfg.PollTimeout = cfg.Telegram.PollingTimeout
		clientCfg.Timeout = cfg.Telegram.PollingTimeout + 30*time.Second
	}
	clientCfg.RequestsPerSecond = cfg.Telegram.GlobalRateLimit
	clientCfg.Retrier = retry.TelegramRetrier()
	clientCfg.Breaker = circuitbreaker.TelegramAPIBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	})
	clientCfg.Logger = log
	client := tgapi.NewClient(clientCfg)

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	log.Info("authorized on Telegram", "username", me.Username)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	dispCfg := messaging.DefaultDispatcherConfig(bus)
	dispCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispCfg)

	counters := eventhandler.NewCompanyCountersHandler(st.Metrics, log)
	notifier := eventhandler.NewApplicationNotifier(client, cfg.Features.Gate(config.FeatureNotifyApplicant), log)
	for _, reg := range []struct {
		event   shared.EventType
		name    string
		handler messaging.ContextHandler
	}{
		{shared.EventRecruiterRegistered, "company_counters.employees", counters.OnRecruiterRegistered},
		{shared.EventVacancyPublished, "company_counters.vacancies_up", counters.OnVacancyPublished},
		{shared.EventVacancyDeleted, "company_counters.vacancies_down", counters.OnVacancyDeleted},
		{shared.EventApplicationSubmitted, "notify_recruiter", notifier.Handle},
	} {
		if err := dispatcher.Register(reg.event, reg.name, reg.handler); err != nil {
			return fmt.Errorf("register %s: %w", reg.name, err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	commands := handler.Commands{
		RegisterUser:      command.NewRegisterUserHandler(st.Users),
		UpdateUser:        command.NewUpdateUserHandler(st.Users, st.Profiles),
		RegisterSeeker:    command.NewRegisterSeekerHandler(st.Users, st.Seekers, st.Portfolios, st.Graph, st.Profiles, log),
		UpdatePortfolio:   command.NewUpdatePortfolioHandler(st.Seekers, st.Portfolios),
		RegisterRecruiter: command.NewRegisterRecruiterHandler(st.Users, st.Recruiters, st.Companies, st.Graph, bus, st.Profiles, log),
		RegisterCompany:   command.NewRegisterCompanyHandler(st.Companies, st.Metrics, log),
		PublishVacancy:    command.NewPublishVacancyHandler(st.Recruiters, st.Vacancies, st.Bodies, st.Graph, bus, log),
		DeleteVacancy:     command.NewDeleteVacancyHandler(st.Recruiters, st.Vacancies, st.Bodies, st.Graph, bus, log),
		ApplyToVacancy:    command.NewApplyToVacancyHandler(st.Users, st.Seekers, st.Vacancies, st.Bodies, st.Graph, bus, log),
	}
	queries := handler.Queries{
		Profile:     query.NewGetProfileHandler(st.Users, st.Seekers, st.Recruiters, st.Profiles, log),
		Portfolio:   query.NewGetPortfolioHandler(st.Seekers, st.Portfolios),
		Companies:   query.NewSearchCompaniesHandler(st.Companies),
		CompanyCard: query.NewGetCompanyMetricsHandler(st.Companies, st.Metrics),
		Vacancies:   query.NewVacanciesHandler(st.Vacancies, st.Bodies, st.Graph, st.Users, st.Seekers, st.Portfolios),
	}
	reconcile := command.NewReconcileMetricsHandler(st.Companies, st.Recruiters, st.Vacancies, st.Metrics, log)

	sessions := search.NewRegistry(st.Vacancies, st.Bodies, search.RegistryConfig{
		ChunkLimit: cfg.Search.ChunkLimit,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	set := handler.New(handler.Deps{
		Commands: commands,
		Queries:  queries,
		Sessions: sessions,
		States:   st.States,
		Features: handler.Features{
			Applications:        cfg.Features.Gate(config.FeatureApplications),
			CompanyRegistration: cfg.Features.Gate(config.FeatureCompanyRegistration),
		},
		Logger: log,
	})

	botCfg := telegram.DefaultBotConfig()
	botCfg.UpdateTimeout = cfg.Telegram.UpdateTimeout
	botCfg.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrentUpdates
	botCfg.GracefulShutdownTimeout = cfg.App.ShutdownTimeout
	botCfg.RateLimit.RequestsPerMinute = cfg.Telegram.UserRateLimit
	botCfg.RateLimit.BurstSize = cfg.Telegram.UserRateBurst
	for _, id := range cfg.Telegram.AdminIDs {
		botCfg.RateLimit.Whitelisted[id] = true
	}
	botCfg.Logger = log
	bot := telegram.NewBot(botCfg, client, telegram.Routes(set))

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: log})
	if cfg.Scheduler.Enabled {
		for _, j := range []struct {
			job  scheduler.Job
			spec string
			opts []scheduler.JobOption
		}{
			{jobs.NewExpireSessionsJob(sessions, cfg.Search.SessionTTL, log), scheduler.Every(cfg.Scheduler.SweepInterval), nil},
			{jobs.NewReconcileMetricsJob(reconcile, cfg.Scheduler.JobTimeout, log), scheduler.Every(cfg.Scheduler.ReconcileInterval), []scheduler.JobOption{scheduler.RunOnStart()}},
			{jobs.NewRateLimitCleanupJob(bot, log), scheduler.Every(cfg.Scheduler.RateLimitCleanup), nil},
		} {
			if err := sched.Register(j.job, j.spec, j.opts...); err != nil {
				return fmt.Errorf("register job %s: %w", j.job.Name(), err)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	readiness := handlers.NewReadiness(cfg.App.Version)
	for name, p := range st.Checks {
		readiness.Add(name, handlers.PingCheck(p))
	}

	var webhook *handlers.Webhook
	if cfg.Telegram.UseWebhook {
		webhook = handlers.NewWebhook(cfg.Telegram.WebhookSecret, bot.HandleUpdate, log)
	}

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpDeps := httpserver.Dependencies{
		Version:   cfg.App.Version,
		Readiness: readiness,
		Stats:     func() any { return bot.Metrics() },
		Logger:    log,
	}
	if webhook != nil {
		httpDeps.Webhook = webhook
	}
	server := httpserver.NewServer(httpCfg, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. RUN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Enabled {
		g.Go(server.Start)
	}

	if cfg.Scheduler.Enabled {
		g.Go(func() error { return sched.Start(gctx) })
	}

	if cfg.Telegram.UseWebhook {
		if err := client.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Info("receiving updates via webhook", "url", cfg.Telegram.WebhookURL)
	} else {
		if err := client.DeleteWebhook(ctx, false); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		g.Go(func() error { return bot.Run(gctx, client) })
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
		if webhook != nil {
			webhook.Wait()
		}
		if sched.IsRunning() {
			if err := sched.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("scheduler: %w", err))
			}
		}
		if err := bot.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("bot: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("vacancies bot stopped")
	return nil
}
