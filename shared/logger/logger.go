// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger provides structured logging partitioned by tenant and correlation id
type Logger struct {
	Component  string
	InstanceID string
	Container  string

	out *log.Logger
}

// LogEntry is one structured log line
type LogEntry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         LogLevel               `json:"level"`
	Component     string                 `json:"component"`
	InstanceID    string                 `json:"instance_id"`
	Container     string                 `json:"container"`
	TenantID      string                 `json:"tenant_id,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Message       string                 `json:"message"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// New creates a new Logger for the specified component
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}

	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
	}
}

// NewWithWriter creates a Logger that writes to w instead of the standard logger.
func NewWithWriter(component string, w io.Writer) *Logger {
	l := New(component)
	l.out = log.New(w, "", 0)
	return l
}

// Named returns a copy of the logger reporting under a different component.
func (l *Logger) Named(component string) *Logger {
	c := *l
	c.Component = component
	return &c
}

// Log creates a structured log entry and writes it out
func (l *Logger) Log(level LogLevel, tenantID, correlationID, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         level,
		Component:     l.Component,
		InstanceID:    l.InstanceID,
		Container:     l.Container,
		TenantID:      tenantID,
		CorrelationID: correlationID,
		Message:       message,
		Fields:        fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		l.println("ERROR: Failed to marshal log entry: " + err.Error())
		return
	}

	l.println(string(jsonBytes))
}

func (l *Logger) println(s string) {
	if l.out != nil {
		l.out.Println(s)
		return
	}
	log.Println(s)
}

// Info logs an informational message
func (l *Logger) Info(tenantID, correlationID, message string, fields map[string]interface{}) {
	l.Log(INFO, tenantID, correlationID, message, fields)
}

// Error logs an error message
func (l *Logger) Error(tenantID, correlationID, message string, fields map[string]interface{}) {
	l.Log(ERROR, tenantID, correlationID, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(tenantID, correlationID, message string, fields map[string]interface{}) {
	l.Log(WARN, tenantID, correlationID, message, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(tenantID, correlationID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, tenantID, correlationID, message, fields)
}

// InfoWithDuration logs an info message with a duration_ms field
func (l *Logger) InfoWithDuration(tenantID, correlationID, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(tenantID, correlationID, message, fields)
}

// ErrorWithCode logs an error with a status code
func (l *Logger) ErrorWithCode(tenantID, correlationID, message string, statusCode int, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["status_code"] = statusCode
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error(tenantID, correlationID, message, fields)
}
