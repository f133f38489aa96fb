package domain

import "time"

// LogLevel is the severity of a structured log entry.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogEntry is one record of a run's structured log.
type LogEntry struct {
	Timestamp time.Time `json:"ts"`
	Node      string    `json:"node"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"msg"`
	Preview   string    `json:"preview"`
}
