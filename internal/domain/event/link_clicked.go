package event

var _ Event = LinkClicked{}

const LinkClickedName = "link.clicked"

// LinkClicked is raised after a redirect has been served and its click recorded.
type LinkClicked struct {
	Base
	LinkID        int64  `json:"link_id"`
	TotalClicks   int64  `json:"total_clicks"`
	DeviceType    string `json:"device_type,omitempty"`
	TrafficSource string `json:"traffic_source,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
}

func NewLinkClicked(linkID int64, shortCode string, totalClicks int64) LinkClicked {
	return LinkClicked{
		Base:        NewBase(shortCode),
		LinkID:      linkID,
		TotalClicks: totalClicks,
	}
}

func (e LinkClicked) EventName() string {
	return LinkClickedName
}
