package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/sweethome/vacancies-bot/internal/application/query"
)

// VacanciesListAction prints one page of vacancies with their bodies.
func VacanciesListAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	st := app.Stores
	vacancies := query.NewVacanciesHandler(st.Vacancies, st.Bodies, st.Graph, st.Users, st.Seekers, st.Portfolios)

	rows, err := vacancies.List(ctx, query.ListVacanciesQuery{
		Limit:  cmd.Int("limit"),
		Offset: cmd.Int("offset"),
	})
	if err != nil {
		return err
	}

	total, err := st.Vacancies.Count(ctx)
	if err != nil {
		return fmt.Errorf("count vacancies: %w", err)
	}

	if err := renderVacancies(rows); err != nil {
		return err
	}
	fmt.Fprintf(output, "%d of %d vacancies\n", len(rows), total)
	return nil
}

func renderVacancies(rows []query.VacancyDTO) error {
	table := newTable("ID", "Owner", "Position", "Salary", "Created")
	for _, v := range rows {
		position, salary := "(missing body)", "-"
		if body, ok := v.Body.Get(); ok {
			position = body.Position
			salary = fmt.Sprint(body.Salary)
		}
		err := table.Append(v.ID, v.OwnerID, position, salary, v.CreatedAt.Format("2006-01-02"))
		if err != nil {
			return err
		}
	}
	return table.Render()
}
