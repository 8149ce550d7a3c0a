package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/samber/lo"

	"linkboard/internal/domain"
)

// GroupCount is the number of clicks sharing one attribute value.
// Percentage is of all clicks in the window, rounded to one decimal.
type GroupCount struct {
	Value      string  `json:"value"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Breakdowns groups window clicks by country, device and traffic source.
type Breakdowns struct {
	Countries      []GroupCount `json:"countries"`
	DeviceTypes    []GroupCount `json:"deviceTypes"`
	TrafficSources []GroupCount `json:"trafficSources"`
}

// BreakDown counts clicks per attribute value, largest group first.
func BreakDown(events []domain.ClickEvent) Breakdowns {
	return Breakdowns{
		Countries:      groupBy(events, func(e domain.ClickEvent) string { return e.CountryCode }),
		DeviceTypes:    groupBy(events, func(e domain.ClickEvent) string { return e.DeviceType }),
		TrafficSources: groupBy(events, func(e domain.ClickEvent) string { return e.TrafficSource }),
	}
}

func groupBy(events []domain.ClickEvent, key func(domain.ClickEvent) string) []GroupCount {
	total := len(events)
	counts := lo.CountValuesBy(events, func(e domain.ClickEvent) string {
		if v := key(e); v != "" {
			return v
		}
		return "Unknown"
	})

	groups := lo.MapToSlice(counts, func(value string, n int) GroupCount {
		return GroupCount{
			Value:      value,
			Count:      int64(n),
			Percentage: math.Round(float64(n)*1000/float64(total)) / 10,
		}
	})
	slices.SortFunc(groups, func(a, b GroupCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return groups
}
