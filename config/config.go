package config

import (
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	// InfluxDB configuration
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string

	// Durable write behavior
	WriteMaxRetries int
	WriteBackoffMs  int
	RetryQueueSize  int

	// Message Queue configuration
	MsgQueueAddr         string
	MsgQueueStream       string
	MsgQueueGroup        string
	MsgQueueConsumerName string

	// WebSocket configuration
	WSPath        string
	WSAuthToken   string
	WSHeartbeatMs int
	WSRateLimitMs int

	// CSV Simulator configuration
	CSVPath    string
	CSVDelayMs int

	// Server configuration
	Port string
}

// Load loads configuration from environment variables
func Load() Config {
	cfg := Config{
		// InfluxDB defaults
		InfluxDBURL:    getEnv("INFLUXDB_URL", "http://influxdb:8086"),
		InfluxDBToken:  getEnv("INFLUXDB_TOKEN", "supersecrettoken"),
		InfluxDBOrg:    getEnv("INFLUXDB_ORG", "uasorg"),
		InfluxDBBucket: getEnv("INFLUXDB_BUCKET", "uas_bucket"),

		// Durable write defaults
		WriteMaxRetries: getEnvInt("WRITE_MAX_RETRIES", 3),
		WriteBackoffMs:  getEnvInt("WRITE_BACKOFF_MS", 100),
		RetryQueueSize:  getEnvInt("RETRY_QUEUE_SIZE", 1024),

		// Message Queue defaults
		MsgQueueAddr:         getEnv("MSG_QUEUE_ADDR", "redis:6379"),
		MsgQueueStream:       getEnv("MSG_QUEUE_STREAM", "uas_telemetry"),
		MsgQueueGroup:        getEnv("MSG_QUEUE_GROUP", "uas_ingest_group"),
		MsgQueueConsumerName: getEnv("MSG_QUEUE_CONSUMER_NAME", "ingest"),

		// WebSocket defaults
		WSPath:        getEnv("WS_PATH", "/ws"),
		WSAuthToken:   getEnv("WS_AUTH_TOKEN", "demo-token"),
		WSHeartbeatMs: getEnvInt("WS_HEARTBEAT_MS", 30000),
		WSRateLimitMs: getEnvInt("WS_RATE_LIMIT_MS", 250),

		// CSV Simulator defaults
		CSVPath:    getEnv("CSV_PATH", "/data/uas_flight_log.csv"),
		CSVDelayMs: getEnvInt("CSV_DELAY_MS", 1000),

		// Server defaults
		Port: getEnv("PORT", "8080"),
	}

	return cfg
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a fallback default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
