// Package commands implements the vacanciesctl subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/sweethome/vacancies-bot/config"
	"github.com/sweethome/vacancies-bot/internal/container"
	"github.com/sweethome/vacancies-bot/pkg/logger"
)

// errNeedsPostgres is returned by commands that make no sense on the memory
// backend.
var errNeedsPostgres = errors.New("this command needs STORAGE_BACKEND=postgres")

// AppContext holds what every command needs.
type AppContext struct {
	Config *config.Config
	Stores *container.Stores
	Logger *slog.Logger
}

// NewAppContext loads the env file and opens the stores. Migrations are
// never applied implicitly; use "migrate up".
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.LoadStorage(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Database.AutoMigrate = false

	log := logger.NewWithOptions(logger.Options{
		Output: os.Stderr,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: logger.FormatText,
	})

	stores, err := container.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	return &AppContext{Config: cfg, Stores: stores, Logger: log}, nil
}

// Close releases the store connections.
func (ac *AppContext) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), ac.Config.App.ShutdownTimeout)
	defer cancel()
	ac.Stores.Close(ctx)
}

// output is where tables go. Tests swap it.
var output io.Writer = os.Stdout

func newTable(header ...any) *tablewriter.Table {
	t := tablewriter.NewWriter(output)
	t.Header(header...)
	return t
}
