package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Storage driver names accepted in StorageDriver.
const (
	DriverAuto       = "auto"
	DriverDocument   = "document"
	DriverRelational = "relational"
)

// Cloud holds settings for the cloud backup file store.
type Cloud struct {
	// Bucket is the object storage bucket holding backups.
	Bucket string `json:"bucket,omitempty"`

	// Region is the bucket region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the default S3 endpoint (MinIO and friends).
	Endpoint string `json:"endpoint,omitempty"`

	// AccessKey and SecretKey are static credentials for the bucket.
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`

	// BackupName is the object name for the cloud backup.
	// Defaults to coinvault_backup.json.gz (compressed document).
	BackupName string `json:"backup_name,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// StorageDriver picks the local store backend: "document", "relational",
	// or "auto" to probe the platform once at startup.
	StorageDriver string `json:"storage_driver,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections
	// for the relational backend. 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are rejected at startup.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// All tools belonging to disabled types are excluded from registration.
	// Known types: "item", "album", "collection", "backup".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	Cloud Cloud `json:"cloud,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorageDriver: DriverAuto,
		LogLevel:      "info",
		Cloud: Cloud{
			BackupName: "coinvault_backup.json.gz",
		},
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.coinvault.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.StorageDriver = pick(overlay.StorageDriver, base.StorageDriver)
	result.LogLevel = pick(overlay.LogLevel, base.LogLevel)

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}
	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	result.Cloud = Cloud{
		Bucket:     pick(overlay.Cloud.Bucket, base.Cloud.Bucket),
		Region:     pick(overlay.Cloud.Region, base.Cloud.Region),
		Endpoint:   pick(overlay.Cloud.Endpoint, base.Cloud.Endpoint),
		AccessKey:  pick(overlay.Cloud.AccessKey, base.Cloud.AccessKey),
		SecretKey:  pick(overlay.Cloud.SecretKey, base.Cloud.SecretKey),
		BackupName: pick(overlay.Cloud.BackupName, base.Cloud.BackupName),
	}

	return result
}

// pick returns overlay if non-empty, else base.
func pick(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
