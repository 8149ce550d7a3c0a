// Package analytics turns raw click events and uptime checks into fixed
// daily rollups and assembles per-link statistics.
package analytics

import (
	"time"

	"linkboard/internal/domain"
)

// DateLayout is the calendar-day format used for bucket dates.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DailyBucket is the click count for one UTC calendar day.
type DailyBucket struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DailyUptime is the uptime rollup for one UTC calendar day.
// UptimePercentage is nil when no checks were recorded that day.
type DailyUptime struct {
	Date             string   `json:"date"`
	UptimePercentage *float64 `json:"uptimePercentage"`
	TotalChecks      int64    `json:"totalChecks"`
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Window returns the half-open range [from, to) covering windowDays calendar
// days ending with the day containing now.
func Window(windowDays int, now time.Time) (from, to time.Time) {
	today := DayStart(now)
	return today.AddDate(0, 0, -(windowDays - 1)), today.Add(day)
}

// dayIndex returns the bucket index of t within the window starting at from,
// or -1 when t falls outside it.
func dayIndex(t, from time.Time, windowDays int) int {
	d := DayStart(t)
	if d.Before(from) {
		return -1
	}
	idx := int(d.Sub(from) / day)
	if idx >= windowDays {
		return -1
	}
	return idx
}

func dates(from time.Time, windowDays int) []string {
	out := make([]string, windowDays)
	for i := range out {
		out[i] = from.AddDate(0, 0, i).Format(DateLayout)
	}
	return out
}

// BucketClicks counts click events per UTC day for the windowDays days ending
// on the day of now, oldest first. Days without clicks are present with a zero
// count and events outside the window are ignored.
func BucketClicks(events []domain.ClickEvent, windowDays int, now time.Time) []DailyBucket {
	if windowDays < 1 {
		return []DailyBucket{}
	}
	from, _ := Window(windowDays, now)

	buckets := make([]DailyBucket, windowDays)
	for i, date := range dates(from, windowDays) {
		buckets[i].Date = date
	}
	for _, e := range events {
		if idx := dayIndex(e.CreatedAt, from, windowDays); idx >= 0 {
			buckets[idx].Count++
		}
	}
	return buckets
}

// BucketUptime computes the share of UP checks per UTC day over the same
// window as BucketClicks.
func BucketUptime(checks []domain.UptimeCheck, windowDays int, now time.Time) []DailyUptime {
	if windowDays < 1 {
		return []DailyUptime{}
	}
	from, _ := Window(windowDays, now)

	up := make([]int64, windowDays)
	total := make([]int64, windowDays)
	for _, c := range checks {
		idx := dayIndex(c.CreatedAt, from, windowDays)
		if idx < 0 {
			continue
		}
		total[idx]++
		if c.Status == domain.StatusUp {
			up[idx]++
		}
	}

	out := make([]DailyUptime, windowDays)
	for i, date := range dates(from, windowDays) {
		out[i] = DailyUptime{
			Date:             date,
			UptimePercentage: UptimePercentage(up[i], total[i]),
			TotalChecks:      total[i],
		}
	}
	return out
}

// UptimePercentage returns 100*up/total rounded half-up to one decimal place,
// or nil when total is zero.
func UptimePercentage(up, total int64) *float64 {
	if total <= 0 {
		return nil
	}
	// Integer rounding of 1000*up/total keeps exact halves exact.
	tenths := (2000*up + total) / (2 * total)
	pct := float64(tenths) / 10
	return &pct
}
