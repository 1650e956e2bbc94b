package config

import (
	"os"
	"strings"
	"time"
)

const (
	EnableMonitoringEnvKey     = `NCCLPG_CONFIG_ENABLE_MONITORING`
	EnableStallDetectionEnvKey = `NCCLPG_CONFIG_ENABLE_STALL_DETECTION`
	LogLevelEnvKey             = `NCCLPG_CONFIG_LOG_LEVEL`
	MonitoringPeriodEnvKey     = `NCCLPG_CONFIG_MONITORING_PERIOD`
	StorePollPeriodEnvKey      = `NCCLPG_CONFIG_STORE_POLL_PERIOD`
)

// ConfigEnvKeys are forwarded by ncclpg-run to every rank.
var ConfigEnvKeys = []string{
	EnableMonitoringEnvKey,
	EnableStallDetectionEnvKey,
	LogLevelEnvKey,
	MonitoringPeriodEnvKey,
	StorePollPeriodEnvKey,
}

var (
	EnableMonitoring     = false
	EnableStallDetection = false
	LogLevel             = `INFO`
	MonitoringPeriod     = 1 * time.Second
	StorePollPeriod      = 50 * time.Millisecond
	StallPeriod          = 3 * time.Second
)

var logLevels = map[string]struct{}{
	`DEBUG`: {},
	`INFO`:  {},
	`WARN`:  {},
	`ERROR`: {},
}

func init() {
	if val := os.Getenv(EnableMonitoringEnvKey); len(val) > 0 {
		EnableMonitoring = isTrue(val)
	}
	if val := os.Getenv(EnableStallDetectionEnvKey); len(val) > 0 {
		EnableStallDetection = isTrue(val)
	}
	if val := os.Getenv(LogLevelEnvKey); len(val) > 0 {
		if level := strings.ToUpper(val); isLogLevel(level) {
			LogLevel = level
		}
	}
	if val := os.Getenv(MonitoringPeriodEnvKey); len(val) > 0 {
		MonitoringPeriod = parseDuration(val, MonitoringPeriod)
	}
	if val := os.Getenv(StorePollPeriodEnvKey); len(val) > 0 {
		StorePollPeriod = parseDuration(val, StorePollPeriod)
	}
}

func isTrue(val string) bool {
	return val == "true"
}

func isLogLevel(val string) bool {
	_, ok := logLevels[val]
	return ok
}

// parseDuration falls back to def on malformed or non-positive values.
func parseDuration(val string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
