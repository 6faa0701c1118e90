package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration holds the static settings needed to run the service.
type Configuration struct {
	Address                 string `env:"ADDRESS" envDefault:"8080"`                         // Listen port
	AccessKey               string `env:"ACCESS_KEY"`                                        // Shared key for write endpoints (empty = open)
	MongoDB_ConnectionURI   string `env:"MONGODB_CONNECTION_URI,required"`                   // MongoDB connection URI
	MongoDB_DBName_Data     string `env:"MONGODB_DBNAME_DATA,required"`                      // Database holding the reports
	MongoDB_ReportColl      string `env:"MONGODB_REPORT_COLLECTION" envDefault:"reports"`    // Monthly report collection
	Redis_Addr              string `env:"REDIS_ADDR"`                                        // Empty disables the Redis tiers
	Redis_Password          string `env:"REDIS_PASSWORD"`
	Redis_DB                int    `env:"REDIS_DB" envDefault:"0"`
	Cache_MirrorTTL         int    `env:"CACHE_MIRROR_TTL" envDefault:"604800"`              // Seconds a district mirror is kept
	Cache_SnapshotTTL       int    `env:"CACHE_SNAPSHOT_TTL" envDefault:"2592000"`           // Seconds a cumulative snapshot is kept
	AliasTableFile          string `env:"ALIAS_TABLE_FILE" envDefault:"config/aliases.json"` // Institution alias table
	CoordinatorPrefixes     string `env:"COORDINATOR_PREFIXES" envDefault:"DPM"`             // Comma separated
	MatrixConcurrency       int    `env:"MATRIX_CONCURRENCY" envDefault:"8"`                 // Per-institution workers in a district matrix
	SnapshotWorker_Interval int    `env:"SNAPSHOT_WORKER_INTERVAL" envDefault:"300"`         // Seconds
	SnapshotWorker_Batch    int    `env:"SNAPSHOT_WORKER_BATCH" envDefault:"50"`
	SnapshotRebuildCron     string `env:"SNAPSHOT_REBUILD_CRON" envDefault:"0 2 * * *"`      // Nightly full rebuild, empty disables
	CORS_Origins            string `env:"CORS_ORIGINS" envDefault:"*"`                       // Comma separated, * = all
	CORS_AllowCredentials   bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	RateLimit_Max           int    `env:"RATE_LIMIT_MAX" envDefault:"100"`                   // 0 disables
	RateLimit_Window        int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`                 // Seconds
	RateLimit_Enabled       bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

// MirrorTTL is Cache_MirrorTTL as a duration.
func (c *Configuration) MirrorTTL() time.Duration {
	return time.Duration(c.Cache_MirrorTTL) * time.Second
}

// SnapshotTTL is Cache_SnapshotTTL as a duration.
func (c *Configuration) SnapshotTTL() time.Duration {
	return time.Duration(c.Cache_SnapshotTTL) * time.Second
}

// SnapshotWorkerInterval is SnapshotWorker_Interval as a duration.
func (c *Configuration) SnapshotWorkerInterval() time.Duration {
	return time.Duration(c.SnapshotWorker_Interval) * time.Second
}

// CoordinatorPrefixList splits CoordinatorPrefixes.
func (c *Configuration) CoordinatorPrefixList() []string {
	return SplitList(c.CoordinatorPrefixes)
}

// SplitList splits a comma separated setting, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RootDir returns the directory holding config/env, or "" when not found.
func RootDir() string {
	currentDir, err := os.Getwd()
	if err != nil {
		// logger may not be initialized yet
		fmt.Printf("Cannot get working directory: %v\n", err)
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(currentDir, "config", "env")); err == nil {
			return currentDir
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// ResolvePath makes a relative path relative to RootDir.
func ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if root := RootDir(); root != "" {
		return filepath.Join(root, path)
	}
	return path
}

// getEnvPath returns config/env/<GO_ENV>.env, GO_ENV defaulting to development.
func getEnvPath() string {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}
	root := RootDir()
	if root == "" {
		return ""
	}
	return filepath.Join(root, "config", "env", fmt.Sprintf("%s.env", goEnv))
}

// NewConfig loads the env file for GO_ENV, then parses the environment. Values
// already set in the process environment win over the file.
func NewConfig() *Configuration {
	if envPath := getEnvPath(); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Cannot load env file %s: %v\n", envPath, err)
		}
	} else {
		fmt.Printf("config/env not found, using process environment only\n")
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("Failed to parse config: %+v\n", err)
		return nil
	}
	return &cfg
}
