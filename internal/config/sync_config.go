package config

import (
	"encoding/json"
	"os"
	"time"
)

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	// ============ QUEUE / RETRY ============
	MaxRetries     int   `json:"max_retries"`
	BackoffSeconds []int `json:"backoff_seconds"` // delay before retry n (capped at last entry)

	// ============ SCHEDULING ============
	SyncOnStartup   bool `json:"sync_on_startup"`
	ReconnectDelay  int  `json:"reconnect_delay"`  // seconds between going online and auto-sync
	ProbeInterval   int  `json:"probe_interval"`   // seconds between reachability probes
	ProbeTimeout    int  `json:"probe_timeout"`    // seconds per probe
	RefreshInterval int  `json:"refresh_interval"` // minutes between cache refreshes

	// ============ BACKUP / RETENTION ============
	BackupInterval int `json:"backup_interval"` // minutes between scheduler checks
	BackupMaxAge   int `json:"backup_max_age"`  // minutes before a new backup is due
	RetentionDays  int `json:"retention_days"`  // cache/backup entries older than this are pruned
}

// LoadSyncConfig loads sync configuration from environment or file
func LoadSyncConfig() *SyncConfig {
	if configPath := os.Getenv("SYNC_CONFIG_PATH"); configPath != "" {
		if cfg, err := loadSyncConfigFromFile(configPath); err == nil {
			return cfg
		}
	}
	return defaultSyncConfig()
}

func loadSyncConfigFromFile(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultSyncConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		MaxRetries:      getIntEnv("SYNC_MAX_RETRIES", 3),
		BackoffSeconds:  []int{1, 5, 15},
		SyncOnStartup:   getBoolEnv("SYNC_ON_STARTUP", true),
		ReconnectDelay:  getIntEnv("SYNC_RECONNECT_DELAY", 2),
		ProbeInterval:   getIntEnv("SYNC_PROBE_INTERVAL", 30),
		ProbeTimeout:    getIntEnv("SYNC_PROBE_TIMEOUT", 10),
		RefreshInterval: getIntEnv("CACHE_REFRESH_INTERVAL", 15),
		BackupInterval:  getIntEnv("BACKUP_INTERVAL", 30),
		BackupMaxAge:    getIntEnv("BACKUP_MAX_AGE", 30),
		RetentionDays:   getIntEnv("RETENTION_DAYS", 7),
	}
}

// Backoff returns the delay to apply before retry attempt n (1-based),
// capped at the last entry of the schedule.
func (c *SyncConfig) Backoff(retry int) time.Duration {
	if len(c.BackoffSeconds) == 0 || retry <= 0 {
		return 0
	}
	idx := retry - 1
	if idx >= len(c.BackoffSeconds) {
		idx = len(c.BackoffSeconds) - 1
	}
	return time.Duration(c.BackoffSeconds[idx]) * time.Second
}
