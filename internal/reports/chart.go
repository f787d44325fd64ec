package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"restoran-pos/internal/apperr"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// truncUnit is the date_trunc unit for each period.
var truncUnit = map[Period]string{
	PeriodDaily:   "day",
	PeriodWeekly:  "week",
	PeriodMonthly: "month",
}

var defaultCount = map[Period]int{
	PeriodDaily:   7,
	PeriodWeekly:  8,
	PeriodMonthly: 12,
}

type ChartPoint struct {
	Bucket   string                     `json:"bucket"`
	ByMethod map[string]decimal.Decimal `json:"byMethod"`
	Total    decimal.Decimal            `json:"total"`
}

type chartRow struct {
	Bucket time.Time       `gorm:"column:bucket"`
	Method string          `gorm:"column:method"`
	Total  decimal.Decimal `gorm:"column:total"`
}

// Window returns the [start, end) range covering count periods that end with the one
// containing now. Weeks start on Monday, like Postgres date_trunc.
func Window(period Period, count int, now time.Time) (time.Time, time.Time, error) {
	if _, ok := truncUnit[period]; !ok {
		return time.Time{}, time.Time{}, apperr.Validationf("invalid period %q", period)
	}
	if count == 0 {
		count = defaultCount[period]
	}
	if count < 0 || count > 366 {
		return time.Time{}, time.Time{}, apperr.Validation("count must be between 1 and 366")
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var start, end time.Time
	switch period {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		monday := day.AddDate(0, 0, -offset)
		end = monday.AddDate(0, 0, 7)
		start = end.AddDate(0, 0, -7*count)
	case PeriodMonthly:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		end = first.AddDate(0, 1, 0)
		start = end.AddDate(0, -count, 0)
	default:
		end = day.AddDate(0, 0, 1)
		start = end.AddDate(0, 0, -count)
	}
	return start, end, nil
}

func step(period Period, t time.Time) time.Time {
	switch period {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// series lays rows onto every bucket of the window so empty periods show as zero.
func series(period Period, start, end time.Time, rows []chartRow) []ChartPoint {
	byBucket := make(map[string]*ChartPoint)
	var out []ChartPoint
	for t := start; t.Before(end); t = step(period, t) {
		out = append(out, ChartPoint{
			Bucket:   t.Format("2006-01-02"),
			ByMethod: map[string]decimal.Decimal{},
			Total:    decimal.Zero,
		})
	}
	for i := range out {
		byBucket[out[i].Bucket] = &out[i]
	}

	for _, r := range rows {
		p, ok := byBucket[r.Bucket.Format("2006-01-02")]
		if !ok {
			continue
		}
		p.ByMethod[r.Method] = p.ByMethod[r.Method].Add(r.Total)
		p.Total = p.Total.Add(r.Total)
	}
	return out
}
