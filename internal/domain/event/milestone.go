package event

var _ Event = MilestoneReached{}

const MilestoneReachedName = "link.milestone_reached"

// Milestones are the click totals that raise MilestoneReached.
var Milestones = []int64{100, 500, 1000, 5000, 10000, 50000, 100000}

// MilestoneReached is raised when a link's total clicks cross a milestone.
type MilestoneReached struct {
	Base
	Milestone   int64 `json:"milestone"`
	TotalClicks int64 `json:"total_clicks"`
}

func NewMilestoneReached(shortCode string, milestone, totalClicks int64) MilestoneReached {
	return MilestoneReached{
		Base:        NewBase(shortCode),
		Milestone:   milestone,
		TotalClicks: totalClicks,
	}
}

func (e MilestoneReached) EventName() string {
	return MilestoneReachedName
}

// CheckMilestone returns the first milestone crossed going from previousCount
// to currentCount, or 0 if none was crossed.
func CheckMilestone(previousCount, currentCount int64) int64 {
	for _, milestone := range Milestones {
		if previousCount < milestone && currentCount >= milestone {
			return milestone
		}
	}
	return 0
}
