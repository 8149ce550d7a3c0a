package domain

import (
	"fmt"
	"strings"
	"time"
)

// UptimeStatus is the result of a single probe.
type UptimeStatus string

const (
	StatusUp   UptimeStatus = "UP"
	StatusDown UptimeStatus = "DOWN"
)

// ParseUptimeStatus accepts UP or DOWN in any letter case.
func ParseUptimeStatus(s string) (UptimeStatus, error) {
	switch UptimeStatus(strings.ToUpper(s)) {
	case StatusUp:
		return StatusUp, nil
	case StatusDown:
		return StatusDown, nil
	default:
		return "", fmt.Errorf("%w: status must be UP or DOWN, got %q", ErrValidation, s)
	}
}

// UptimeCheck is one probe result produced by the external prober.
type UptimeCheck struct {
	ID        int64        `json:"id"`
	LinkID    int64        `json:"linkId"`
	Status    UptimeStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}
