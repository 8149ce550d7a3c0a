package domain

import "time"

// ClickEvent is one observation of a redirect being served.
type ClickEvent struct {
	ID            int64     `json:"id"`
	LinkID        int64     `json:"linkId"`
	CreatedAt     time.Time `json:"createdAt"`
	DeviceType    string    `json:"deviceType,omitempty"`
	TrafficSource string    `json:"trafficSource,omitempty"`
	CountryCode   string    `json:"countryCode,omitempty"`

	// LinkTotal is the owning link's TotalClicks including this click. Only
	// set on events returned by RecordClick.
	LinkTotal int64 `json:"-"`
}

// ClickAttributes carries the enrichment recorded alongside a click.
type ClickAttributes struct {
	DeviceType    string
	TrafficSource string
	CountryCode   string
}
