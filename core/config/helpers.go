package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns a map of the tunables currently loaded in memory,
// for the diagnostics endpoint.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"autopilot_watch_spec":       Global.Autopilot.WatchSpec,
		"autopilot_dispatch_spec":    Global.Autopilot.DispatchSpec,
		"autopilot_min_gap":          Global.Autopilot.UniversalMinGap.String(),
		"autopilot_dedup_window":     Global.Autopilot.DedupWindow.String(),
		"autopilot_immediate_buffer": Global.Autopilot.ImmediateBuffer.String(),
		"autopilot_lock_ttl":         Global.Autopilot.LockTTL.String(),
		"autopilot_item_timeout":     Global.Autopilot.ItemTimeout.String(),
		"autopilot_max_batch":        Global.Autopilot.MaxBatch,
		"app_debug":                  Global.App.Debug,
		"app_version":                Global.App.Version,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90m", "2h") and, as a
// convenience for the hour-based settings, plain numbers meaning hours.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if h, err := strconv.ParseFloat(v, 64); err == nil && h > 0 {
		return time.Duration(h * float64(time.Hour))
	}
	return fallback
}
