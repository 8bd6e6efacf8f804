package commands

import (
	"context"
	"fmt"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/sweethome/vacancies-bot/internal/application/command"
	"github.com/sweethome/vacancies-bot/internal/application/query"
)

// CompaniesSearchAction lists companies whose name starts with --prefix.
func CompaniesSearchAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	page, err := query.NewSearchCompaniesHandler(app.Stores.Companies).Handle(ctx, query.SearchCompaniesQuery{
		Prefix: cmd.String("prefix"),
		Page:   cmd.Int("page"),
	})
	if err != nil {
		return err
	}

	table := newTable("ID", "Name", "Website", "Created")
	for _, c := range page.Companies {
		if err := table.Append(c.ID, c.Name, c.Website, c.CreatedAt.Format("2006-01-02")); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	if page.HasNext {
		fmt.Fprintf(output, "more results on --page %d\n", page.Page+1)
	}
	return nil
}

// CompaniesMetricsAction prints one company card.
func CompaniesMetricsAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	card, err := query.NewGetCompanyMetricsHandler(app.Stores.Companies, app.Stores.Metrics).Handle(ctx, cmd.Int64("id"))
	if err != nil {
		return err
	}
	return renderCompanyCard(card)
}

func renderCompanyCard(card *query.CompanyCardDTO) error {
	table := newTable("Field", "Value")
	rows := [][]any{
		{"ID", card.Company.ID},
		{"Name", card.Company.Name},
		{"Website", card.Company.Website},
		{"Employees", counter(card.Metrics.Employees)},
		{"Open vacancies", counter(card.Metrics.OpenVacancies)},
	}
	for _, r := range rows {
		if err := table.Append(r...); err != nil {
			return err
		}
	}
	return table.Render()
}

func counter(v mo.Option[int64]) string {
	n, ok := v.Get()
	if !ok {
		return "unknown"
	}
	return fmt.Sprint(n)
}

// CompaniesReconcileAction recomputes every company's counters from the
// relational store.
func CompaniesReconcileAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	st := app.Stores
	result, err := command.NewReconcileMetricsHandler(st.Companies, st.Recruiters, st.Vacancies, st.Metrics, app.Logger).Handle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "reconciled %d companies (%d failed) in %s\n", result.Companies, result.Failed, result.Duration)
	return nil
}
