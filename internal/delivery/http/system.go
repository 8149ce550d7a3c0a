package http

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StoreStatus is the part of the link service the system monitor needs.
type StoreStatus interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context, search string) (int64, error)
}

// SystemMonitor reports process uptime and database health for the
// dashboard's stats cards.
type SystemMonitor struct {
	store     StoreStatus
	logger    *zap.Logger
	startedAt time.Time
	now       func() time.Time
}

func NewSystemMonitor(store StoreStatus, logger *zap.Logger, startedAt time.Time, now func() time.Time) *SystemMonitor {
	if now == nil {
		now = time.Now
	}
	return &SystemMonitor{store: store, logger: logger, startedAt: startedAt, now: now}
}

type UptimeInfo struct {
	StartTime time.Time `json:"startTime"`
	Seconds   int64     `json:"seconds"`
	Formatted string    `json:"formatted"`
}

type DatabaseInfo struct {
	Connected      bool   `json:"connected"`
	ResponseTime   string `json:"responseTime,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
}

// SystemStatsResponse is the body of GET /api/stats.
type SystemStatsResponse struct {
	OK         bool         `json:"ok"`
	Uptime     UptimeInfo   `json:"uptime"`
	Database   DatabaseInfo `json:"database"`
	TotalLinks int64        `json:"totalLinks"`
}

// Snapshot pings the store and counts links. A failing store is reported,
// not returned.
func (m *SystemMonitor) Snapshot(ctx context.Context) SystemStatsResponse {
	up := m.now().Sub(m.startedAt)
	resp := SystemStatsResponse{
		Uptime: UptimeInfo{
			StartTime: m.startedAt.UTC(),
			Seconds:   int64(up / time.Second),
			Formatted: FormatUptime(up),
		},
	}

	start := m.now()
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Warn("database ping failed", zap.Error(err))
		return resp
	}
	elapsed := m.now().Sub(start)
	resp.Database = DatabaseInfo{
		Connected:      true,
		ResponseTime:   fmt.Sprintf("%dms", elapsed.Milliseconds()),
		ResponseTimeMs: elapsed.Milliseconds(),
	}

	total, err := m.store.Count(ctx, "")
	if err != nil {
		m.logger.Warn("failed to count links", zap.Error(err))
		return resp
	}
	resp.TotalLinks = total
	resp.OK = true
	return resp
}

// FormatUptime renders d as "3d 4h 5m", "4h 5m" or "5m 6s".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}
