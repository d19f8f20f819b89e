package monitoring

import (
	"context"
	"time"
)

// ServerInfo represents the status of a node in the cluster
type ServerInfo struct {
	ID       string    `json:"id"`
	LastSeen time.Time `json:"last_seen"`
	Uptime   int64     `json:"uptime_seconds"`
	Version  string    `json:"version"`
}

// WorkerActivity represents what a specific pair worker is doing
type WorkerActivity struct {
	ServerID     string    `json:"server_id"`
	WorkerID     int       `json:"worker_id"`
	PoolType     string    `json:"pool_type"` // pair
	IsProcessing bool      `json:"is_processing"`
	PairKey      string    `json:"pair_key,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GlobalStats groups atomic system metrics
type GlobalStats struct {
	TotalScheduled int64 `json:"total_scheduled"`
	TotalPublished int64 `json:"total_published"`
	TotalErrors    int64 `json:"total_errors"`

	// Backlog snapshot refreshed by the heartbeat loop
	ScheduledBacklog int64 `json:"scheduled_backlog"`

	// Estado de infraestructura
	ValkeyEnabled bool `json:"valkey_enabled"`
}

// MonitoringStore defines the contract for system heartbeat and metrics
type MonitoringStore interface {
	// Heartbeat: Update server status
	ReportHeartbeat(ctx context.Context, serverID string, uptime int64, version string) error

	// Servers: Get list of active servers
	GetActiveServers(ctx context.Context) ([]ServerInfo, error)
	RemoveServer(ctx context.Context, serverID string) error

	// Workers: Track what each worker is doing
	UpdateWorkerActivity(ctx context.Context, activity WorkerActivity) error
	GetClusterActivity(ctx context.Context) ([]WorkerActivity, error)

	// Atomic Counters: Increment global metrics
	IncrementStat(ctx context.Context, key string) error

	// Set value: Set a specific value (e.g. scheduled backlog)
	UpdateStat(ctx context.Context, key string, value int64) error

	// Get Stats: Get accumulated counters
	GetGlobalStats(ctx context.Context) (GlobalStats, error)
}
