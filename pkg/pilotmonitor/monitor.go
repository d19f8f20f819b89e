package pilotmonitor

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// OnIncrement es un hook opcional para reportar métricas a sistemas externos (ej: cluster monitor)
var OnIncrement func(key string)

// OnEvent es un hook opcional para transmitir cada evento en vivo (ej: websocket)
var OnEvent func(e Event)

type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	TraceID    string            `json:"trace_id"`
	AccountID  string            `json:"account_id"`
	Platform   string            `json:"platform"`
	Stage      string            `json:"stage"`       // sweep | run | item | publish
	Kind       string            `json:"kind"`        // pair | scheduled | duplicate | invalid | entry
	Status     string            `json:"status"`      // ok | error | skipped | busy
	Error      string            `json:"error"`       // optional
	Metadata   map[string]string `json:"metadata"`    // optional technical details (json strings, etc)
	DurationMs int64             `json:"duration_ms"` // optional
}

type Stats struct {
	TotalRuns      int64   `json:"total_runs"`
	TotalScheduled int64   `json:"total_scheduled"`
	TotalSkipped   int64   `json:"total_skipped"`
	TotalPublished int64   `json:"total_published"`
	TotalErrors    int64   `json:"total_errors"`
	RecentEvents   []Event `json:"recent_events"`
}

type Monitor struct {
	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int

	totalRuns      int64
	totalScheduled int64
	totalSkipped   int64
	totalPublished int64
	totalErrors    int64
}

func New(size int) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{events: make([]Event, size)}
}

func (m *Monitor) Record(e Event) {
	e.Timestamp = time.Now().UTC()

	switch e.Stage {
	case "run":
		atomic.AddInt64(&m.totalRuns, 1)
	case "item":
		switch e.Status {
		case "ok":
			atomic.AddInt64(&m.totalScheduled, 1)
			if OnIncrement != nil {
				OnIncrement("scheduled")
			}
		case "skipped":
			atomic.AddInt64(&m.totalSkipped, 1)
		}
	case "publish":
		if e.Status == "ok" {
			atomic.AddInt64(&m.totalPublished, 1)
			if OnIncrement != nil {
				OnIncrement("published")
			}
		}
	}

	if e.Status == "error" {
		atomic.AddInt64(&m.totalErrors, 1)
		if OnIncrement != nil {
			OnIncrement("error")
		}
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()

	if OnEvent != nil {
		OnEvent(e)
	}
}

func (m *Monitor) GetStats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	res := make([]Event, 0, m.count)
	cutoff := time.Time{}
	if defaultTTL > 0 {
		cutoff = time.Now().UTC().Add(-defaultTTL)
	}
	start := (m.idx - m.count) % len(m.events)
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && !e.Timestamp.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalRuns:      atomic.LoadInt64(&m.totalRuns),
		TotalScheduled: atomic.LoadInt64(&m.totalScheduled),
		TotalSkipped:   atomic.LoadInt64(&m.totalSkipped),
		TotalPublished: atomic.LoadInt64(&m.totalPublished),
		TotalErrors:    atomic.LoadInt64(&m.totalErrors),
		RecentEvents:   res,
	}
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}
	sec, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}

var defaultTTL time.Duration

var defaultMonitor = func() *Monitor {
	size := envInt("PILOT_MONITOR_BUFFER", 200)
	defaultTTL = envDuration("PILOT_MONITOR_TTL", 0)
	return New(size)
}()

func Record(e Event) {
	defaultMonitor.Record(e)
}

func GetStats() Stats {
	return defaultMonitor.GetStats()
}
