package ledger

import (
	"strings"

	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterWeek
	FilterMonth
	FilterThreeMonths
	FilterCustom
)

func (k FilterKind) String() string {
	switch k {
	case FilterWeek:
		return "week"
	case FilterMonth:
		return "month"
	case FilterThreeMonths:
		return "3months"
	case FilterCustom:
		return "custom"
	default:
		return "all"
	}
}

// Filter selects which of a user's expenses List returns.
type Filter struct {
	Kind  FilterKind
	Start models.Date
	End   models.Date
}

func NoFilter() Filter        { return Filter{Kind: FilterNone} }
func LastWeek() Filter        { return Filter{Kind: FilterWeek} }
func LastMonth() Filter       { return Filter{Kind: FilterMonth} }
func LastThreeMonths() Filter { return Filter{Kind: FilterThreeMonths} }
func Between(start, end models.Date) Filter {
	return Filter{Kind: FilterCustom, Start: start, End: end}
}

// ParseFilter reads the filter query parameters. The kind is case-insensitive;
// an empty kind or "all" selects everything.
func ParseFilter(kind, start, end string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "all", "none":
		return NoFilter(), nil
	case "week":
		return LastWeek(), nil
	case "month":
		return LastMonth(), nil
	case "3months":
		return LastThreeMonths(), nil
	case "custom":
		if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
			return Filter{}, failure.Invalid("start date and end date are required for custom filter")
		}
		from, err := models.ParseDate(start)
		if err != nil {
			return Filter{}, failure.Invalid("invalid date format, use YYYY-MM-DD")
		}
		to, err := models.ParseDate(end)
		if err != nil {
			return Filter{}, failure.Invalid("invalid date format, use YYYY-MM-DD")
		}
		return Between(from, to), nil
	default:
		return Filter{}, failure.Invalid("unknown filter " + kind)
	}
}

// Range resolves the filter to an inclusive date range relative to today.
// bounded is false for FilterNone.
func (f Filter) Range(today models.Date) (from, to models.Date, bounded bool, err error) {
	switch f.Kind {
	case FilterNone:
		return models.Date{}, models.Date{}, false, nil
	case FilterWeek:
		return today.AddDays(-7), today, true, nil
	case FilterMonth:
		return today.AddMonths(-1), today, true, nil
	case FilterThreeMonths:
		return today.AddMonths(-3), today, true, nil
	case FilterCustom:
		if f.Start.IsZero() || f.End.IsZero() {
			return models.Date{}, models.Date{}, false, failure.Invalid("start date and end date are required for custom filter")
		}
		return f.Start, f.End, true, nil
	default:
		return models.Date{}, models.Date{}, false, failure.Invalid("unknown filter")
	}
}
