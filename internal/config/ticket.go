package config

import (
	"os"
	"strconv"
	"time"
)

// TicketConfig controls the check-in codes issued for committed bookings.
type TicketConfig struct {
	CodeTTL       time.Duration
	QRImageSize   int
	CodeKeyPrefix string
	QueueName     string
}

func LoadTicketConfig() *TicketConfig {
	return &TicketConfig{
		CodeTTL:       getEnvAsDuration("TICKET_CODE_TTL", 24*time.Hour),
		QRImageSize:   getEnvAsInt("TICKET_QR_SIZE", 256),
		CodeKeyPrefix: getEnv("TICKET_CODE_PREFIX", "ticket"),
		QueueName:     getEnv("BOOKING_EVENT_QUEUE", "booking_events"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
