package enrichment

import (
	ua "github.com/mileusna/useragent"
)

const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceBot     = "Bot"
	DeviceUnknown = "Unknown"
)

// DetectDevice classifies a User-Agent string. Bots are reported before any
// form factor.
func DetectDevice(userAgent string) string {
	if userAgent == "" {
		return DeviceUnknown
	}

	parsed := ua.Parse(userAgent)
	switch {
	case parsed.Bot:
		return DeviceBot
	case parsed.Tablet:
		return DeviceTablet
	case parsed.Mobile:
		return DeviceMobile
	case parsed.Desktop:
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}
