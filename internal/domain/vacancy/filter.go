package vacancy

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SALARY RANGE
// ══════════════════════════════════════════════════════════════════════════════

// SalaryRange is an inclusive [Min, Max] salary interval.
type SalaryRange struct {
	Min int64
	Max int64
}

// NewSalaryRange validates the bounds.
func NewSalaryRange(min, max int64) (SalaryRange, error) {
	if min < 0 || max < 0 {
		return SalaryRange{}, shared.ErrNegativeSalary
	}
	if min > max {
		return SalaryRange{}, shared.ErrInvalidSalaryRange
	}
	return SalaryRange{Min: min, Max: max}, nil
}

// Contains reports whether salary lies within the range, bounds included.
func (r SalaryRange) Contains(salary int64) bool {
	return salary >= r.Min && salary <= r.Max
}

// String renders the range the way users type it.
func (r SalaryRange) String() string {
	switch {
	case r.Max == math.MaxInt64:
		return fmt.Sprintf("%d-", r.Min)
	case r.Min == 0:
		return fmt.Sprintf("-%d", r.Max)
	default:
		return fmt.Sprintf("%d-%d", r.Min, r.Max)
	}
}

// ParseSalaryRange parses "min-max", "min-", "-max" or a single number.
// An empty input or a lone "-" means no salary constraint.
func ParseSalaryRange(input string) (mo.Option[SalaryRange], error) {
	input = strings.ReplaceAll(strings.TrimSpace(input), " ", "")
	if input == "" || input == "-" {
		return mo.None[SalaryRange](), nil
	}

	lo, hi, found := strings.Cut(input, "-")
	if !found {
		n, err := parseAmount(input)
		if err != nil {
			return mo.None[SalaryRange](), err
		}
		r, err := NewSalaryRange(n, n)
		if err != nil {
			return mo.None[SalaryRange](), err
		}
		return mo.Some(r), nil
	}

	min, max := int64(0), int64(math.MaxInt64)
	var err error
	if lo != "" {
		if min, err = parseAmount(lo); err != nil {
			return mo.None[SalaryRange](), err
		}
	}
	if hi != "" {
		if max, err = parseAmount(hi); err != nil {
			return mo.None[SalaryRange](), err
		}
	}

	r, err := NewSalaryRange(min, max)
	if err != nil {
		return mo.None[SalaryRange](), err
	}
	return mo.Some(r), nil
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, shared.WrapError("vacancy", "ParseSalary", shared.ErrInvalidInput,
			fmt.Sprintf("%q is not a whole number", s), err)
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter is the browsing predicate evaluated against a vacancy body.
// The zero value matches every vacancy.
type Filter struct {
	Salary   mo.Option[SalaryRange]
	Position string

	pattern *regexp.Regexp
}

// NewFilter builds a filter. Position text is matched case-insensitively,
// as a regular expression when it compiles and as a literal substring otherwise.
func NewFilter(salary mo.Option[SalaryRange], position string) Filter {
	position = strings.TrimSpace(position)
	if position == "-" {
		position = ""
	}

	f := Filter{Salary: salary, Position: position}
	if position != "" {
		re, err := regexp.Compile("(?i)" + position)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(position))
		}
		f.pattern = re
	}
	return f
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return f.Salary.IsAbsent() && f.Position == ""
}

// Matches evaluates the filter against a vacancy body.
func (f Filter) Matches(body Body) bool {
	if r, ok := f.Salary.Get(); ok && !r.Contains(body.Salary) {
		return false
	}
	if f.Position != "" {
		re := f.pattern
		if re == nil {
			// Filter built as a literal rather than through NewFilter.
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(f.Position))
		}
		if !re.MatchString(body.Position) {
			return false
		}
	}
	return true
}

// String describes the active constraints for display.
func (f Filter) String() string {
	if f.IsEmpty() {
		return "none"
	}
	var parts []string
	if r, ok := f.Salary.Get(); ok {
		parts = append(parts, "salary "+r.String())
	}
	if f.Position != "" {
		parts = append(parts, fmt.Sprintf("position %q", f.Position))
	}
	return strings.Join(parts, ", ")
}
