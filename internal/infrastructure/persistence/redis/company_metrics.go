package redis

import (
	"context"
	"fmt"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/company"
)

// CompanyMetrics implements company.MetricsStore.
type CompanyMetrics struct {
	cache *Cache
}

// NewCompanyMetrics creates a new CompanyMetrics.
func NewCompanyMetrics(cache *Cache) *CompanyMetrics {
	return &CompanyMetrics{cache: cache}
}

// Get reads both counters. A counter that was never written is None.
func (m *CompanyMetrics) Get(ctx context.Context, companyID int64) (company.Metrics, error) {
	employeesKey := CompanyEmployeesKey(companyID)
	vacanciesKey := CompanyVacanciesKey(companyID)

	values, err := m.cache.GetInts(ctx, employeesKey, vacanciesKey)
	if err != nil {
		return company.Metrics{}, fmt.Errorf("read company %d metrics: %w", companyID, err)
	}

	return company.Metrics{
		CompanyID:     companyID,
		Employees:     optionFromMap(values, employeesKey),
		OpenVacancies: optionFromMap(values, vacanciesKey),
	}, nil
}

// AddEmployees applies delta to the employee counter.
func (m *CompanyMetrics) AddEmployees(ctx context.Context, companyID, delta int64) error {
	if _, err := m.cache.IncrByFloor(ctx, CompanyEmployeesKey(companyID), delta); err != nil {
		return fmt.Errorf("update company %d employees: %w", companyID, err)
	}
	return nil
}

// AddVacancies applies delta to the open-vacancy counter.
func (m *CompanyMetrics) AddVacancies(ctx context.Context, companyID, delta int64) error {
	if _, err := m.cache.IncrByFloor(ctx, CompanyVacanciesKey(companyID), delta); err != nil {
		return fmt.Errorf("update company %d vacancies: %w", companyID, err)
	}
	return nil
}

// Set overwrites both counters atomically.
func (m *CompanyMetrics) Set(ctx context.Context, companyID, employees, vacancies int64) error {
	err := m.cache.SetInts(ctx, map[string]int64{
		CompanyEmployeesKey(companyID): employees,
		CompanyVacanciesKey(companyID): vacancies,
	})
	if err != nil {
		return fmt.Errorf("write company %d metrics: %w", companyID, err)
	}
	return nil
}

func optionFromMap(values map[string]int64, key string) mo.Option[int64] {
	if n, ok := values[key]; ok {
		return mo.Some(n)
	}
	return mo.None[int64]()
}
