// Command vacanciesctl is the operator tool of the job board: schema
// migrations, listings and company counter maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/sweethome/vacancies-bot/cmd/vacanciesctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "vacanciesctl",
		Usage: "operate the vacancies bot stores",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to the .env file",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "manage the PostgreSQL schema",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply pending migrations",
						Action: commands.MigrateUpAction,
					},
					{
						Name:   "down",
						Usage:  "roll back the latest migration",
						Action: commands.MigrateDownAction,
					},
					{
						Name:   "status",
						Usage:  "show applied and pending migrations",
						Action: commands.MigrateStatusAction,
					},
				},
			},
			{
				Name:  "vacancies",
				Usage: "inspect vacancies",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list vacancies in ID order",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "limit",
								Usage: "page size",
								Value: 20,
							},
							&cli.IntFlag{
								Name:  "offset",
								Usage: "rows to skip",
							},
						},
						Action: commands.VacanciesListAction,
					},
				},
			},
			{
				Name:  "companies",
				Usage: "inspect companies and their counters",
				Commands: []*cli.Command{
					{
						Name:  "search",
						Usage: "find companies by name prefix",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "prefix",
								Usage: "name prefix, case-insensitive",
							},
							&cli.IntFlag{
								Name:  "page",
								Usage: "zero-based result page",
							},
						},
						Action: commands.CompaniesSearchAction,
					},
					{
						Name:  "metrics",
						Usage: "show a company card",
						Flags: []cli.Flag{
							&cli.Int64Flag{
								Name:     "id",
								Usage:    "company ID",
								Required: true,
							},
						},
						Action: commands.CompaniesMetricsAction,
					},
					{
						Name:   "reconcile",
						Usage:  "recompute employee and vacancy counters",
						Action: commands.CompaniesReconcileAction,
					},
				},
			},
		},
	}
}
