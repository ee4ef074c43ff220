package storage

import (
	"slices"
	"strings"
	"time"

	"github.com/claude/gymrest/internal/models"
)

// RestPeriodSummary aggregates finished sessions within one period.
type RestPeriodSummary struct {
	Period         string  `json:"period"`
	Sessions       int     `json:"sessions"`
	WorkoutSeconds int     `json:"workout_seconds"`
	RestSeconds    int     `json:"rest_seconds"`
	ActiveSeconds  int     `json:"active_seconds"`
	RestCount      int     `json:"rest_count"`
	RestRatio      float64 `json:"rest_ratio"`
	AvgRestSeconds float64 `json:"avg_rest_seconds"`
}

func (p *RestPeriodSummary) finish() {
	if p.WorkoutSeconds > 0 {
		p.RestRatio = float64(p.RestSeconds) / float64(p.WorkoutSeconds)
	}
	if p.RestCount > 0 {
		p.AvgRestSeconds = float64(p.RestSeconds) / float64(p.RestCount)
	}
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "month"
	}
}

// periodStart mirrors date_trunc for weeks (Monday) and months, in UTC.
func periodStart(t time.Time, bucket string) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if truncInterval(bucket) == "week" {
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// aggregateSummaries groups summaries by period, newest period first.
func aggregateSummaries(summaries []models.SessionSummary, bucket string) []RestPeriodSummary {
	byPeriod := make(map[string]*RestPeriodSummary)
	for _, s := range summaries {
		key := periodStart(s.StartedAt, bucket).Format("2006-01-02")
		p, ok := byPeriod[key]
		if !ok {
			p = &RestPeriodSummary{Period: key}
			byPeriod[key] = p
		}
		p.Sessions++
		p.WorkoutSeconds += s.TotalWorkoutDuration
		p.RestSeconds += s.TotalRestTimeAccumulatedSeconds
		p.ActiveSeconds += s.TotalActiveTime
		p.RestCount += s.RestCount
	}

	result := make([]RestPeriodSummary, 0, len(byPeriod))
	for _, p := range byPeriod {
		p.finish()
		result = append(result, *p)
	}
	slices.SortFunc(result, func(a, b RestPeriodSummary) int {
		return strings.Compare(b.Period, a.Period)
	})
	return result
}
