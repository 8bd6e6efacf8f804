// Package container opens the configured storage backend and hands out the
// persistence ports the processes share.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweethome/vacancies-bot/config"
	"github.com/sweethome/vacancies-bot/internal/application/conversation"
	"github.com/sweethome/vacancies-bot/internal/domain/company"
	"github.com/sweethome/vacancies-bot/internal/domain/profile"
	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/persistence/memory"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/persistence/mongo"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/persistence/neo4j"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/persistence/postgres"
	"github.com/sweethome/vacancies-bot/internal/infrastructure/persistence/redis"
	"github.com/sweethome/vacancies-bot/pkg/circuitbreaker"
	"github.com/sweethome/vacancies-bot/pkg/retry"
)

// Graph is the relation store seen from both the profile and vacancy sides.
type Graph interface {
	profile.Graph
	vacancy.Graph
}

// Pinger reports whether a store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores is every persistence port the processes need, whichever backend
// serves it.
type Stores struct {
	Users      profile.UserRepository
	Seekers    profile.SeekerRepository
	Recruiters profile.RecruiterRepository
	Portfolios profile.PortfolioStore
	Profiles   profile.Cache
	Companies  company.Repository
	Metrics    company.MetricsStore
	Vacancies  vacancy.Repository
	Bodies     vacancy.BodyStore
	Graph      Graph
	States     conversation.Store

	// Postgres is nil on the memory backend.
	Postgres *postgres.Connection

	// Checks feed the readiness endpoint.
	Checks  map[string]Pinger
	closers []func(context.Context)
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
}

// Open connects the configured backend. On failure everything opened
// so far is closed again.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stores, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		mem := memory.New()
		return &Stores{
			Users:      mem.Users(),
			Seekers:    mem.Seekers(),
			Recruiters: mem.Recruiters(),
			Portfolios: mem,
			Profiles:   mem.ProfileCache(),
			Companies:  mem.Companies(),
			Metrics:    mem.Metrics(),
			Vacancies:  mem.Vacancies(),
			Bodies:     mem,
			Graph:      mem,
			States:     conversation.NewMemoryStore(),
			Checks:     map[string]Pinger{"memory": mem},
		}, nil
	}

	s := &Stores{Checks: make(map[string]Pinger)}
	if err := s.connect(ctx, cfg, log); err != nil {
		s.Close(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Stores) connect(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	retrier := retry.StartupRetrier(cfg.App.StartupRetries, func(attempt int, err error, delay time.Duration) {
		log.Warn("store not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	})

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL: users, profiles, companies, vacancy rows
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to PostgreSQL...")
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	pg, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pgCfg)
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	s.Postgres = pg
	s.Checks["postgres"] = pg
	s.closers = append(s.closers, func(context.Context) {
		log.Info("closing PostgreSQL pool...")
		pg.Close()
	})

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(pg).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied", "count", applied)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// MongoDB: vacancy bodies and portfolios
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to MongoDB...")
	mg, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*mongo.Connection, error) {
		return mongo.Connect(ctx, mongo.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
			QueryTimeout:   cfg.Mongo.QueryTimeout,
		})
	})
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	s.Checks["mongo"] = mg
	s.closers = append(s.closers, func(ctx context.Context) {
		log.Info("closing MongoDB client...")
		if err := mg.Close(ctx); err != nil {
			log.Warn("mongo close failed", "error", err)
		}
	})

	breaker := circuitbreaker.New("document-store",
		circuitbreaker.WithFailureThreshold(cfg.Mongo.BreakerThreshold),
		circuitbreaker.WithTimeout(cfg.Mongo.BreakerTimeout),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		}),
	)
	documents := mongo.NewDocumentStore(mg, breaker)

	// ─────────────────────────────────────────────────────────────────────────
	// Neo4j: who recruits for what, who applied where
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Neo4j...")
	nj, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*neo4j.Connection, error) {
		return neo4j.Connect(ctx, neo4j.Config{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
	})
	if err != nil {
		return fmt.Errorf("connect neo4j: %w", err)
	}
	s.Checks["neo4j"] = nj
	s.closers = append(s.closers, func(ctx context.Context) {
		log.Info("closing Neo4j driver...")
		if err := nj.Close(ctx); err != nil {
			log.Warn("neo4j close failed", "error", err)
		}
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Redis: company counters, profile cache, dialog state
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis...")
	rd, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*redis.Cache, error) {
		return redis.NewCache(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	s.Checks["redis"] = rd
	s.closers = append(s.closers, func(context.Context) {
		log.Info("closing Redis client...")
		_ = rd.Close()
	})

	s.Users = postgres.NewUserRepository(pg)
	s.Seekers = postgres.NewSeekerRepository(pg)
	s.Recruiters = postgres.NewRecruiterRepository(pg)
	s.Companies = postgres.NewCompanyRepository(pg)
	s.Vacancies = postgres.NewVacancyRepository(pg)
	s.Portfolios = documents
	s.Bodies = documents
	s.Graph = neo4j.NewGraphRepository(nj)
	s.Metrics = redis.NewCompanyMetrics(rd)
	s.Profiles = redis.NewProfileCache(rd).WithTTL(cfg.Redis.ProfileCacheTTL)
	s.States = redis.NewConversationStore(rd, cfg.Redis.ConversationTTL)

	log.Info("all stores connected")
	return nil
}
