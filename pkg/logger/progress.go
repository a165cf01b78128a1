package logger

import (
	"fmt"
	"sync"
	"time"
)

// DocumentTracker tracks progress through a batch of documents
type DocumentTracker struct {
	logger    Logger
	phase     string
	total     int64
	current   int64
	startTime time.Time
	mutex     sync.Mutex
}

// NewDocumentTracker creates a tracker for a processing phase over total documents
func NewDocumentTracker(phase string, total int64, log Logger) *DocumentTracker {
	if log == nil {
		log = GetGlobalLogger()
	}

	tracker := &DocumentTracker{
		logger:    log.WithComponent("progress"),
		phase:     phase,
		total:     total,
		startTime: time.Now(),
	}

	tracker.logger.WithFields(Fields{
		"phase": phase,
		"total": total,
	}).Info("Starting phase")

	return tracker
}

// Advance records one processed document and logs its outcome
func (t *DocumentTracker) Advance(origin string, ok bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.current++
	fields := Fields{
		"phase":     t.phase,
		"document":  origin,
		"processed": t.current,
	}
	if t.total > 0 {
		fields["total"] = t.total
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(t.current)/float64(t.total)*100)
	}

	if ok {
		t.logger.WithFields(fields).Debug("Document processed")
	} else {
		t.logger.WithFields(fields).Warn("Document skipped")
	}
}

// Complete logs final statistics for the phase
func (t *DocumentTracker) Complete() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	duration := time.Since(t.startTime)
	rate := float64(t.current) / duration.Seconds()

	t.logger.WithFields(Fields{
		"phase":     t.phase,
		"total":     t.total,
		"processed": t.current,
		"duration":  duration.String(),
		"rate":      fmt.Sprintf("%.2f/sec", rate),
	}).Info("Phase completed")
}

// OperationLogger provides structured logging for operations with timing
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(operation string, log Logger) *OperationLogger {
	if log == nil {
		log = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    log.WithComponent("operation"),
		operation: operation,
		fields:    make(Fields),
		startTime: time.Now(),
	}

	ol.logger.WithField("operation", operation).Info("Starting operation")
	return ol
}

// WithField adds a field to the operation context
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Step logs a step within the operation
func (ol *OperationLogger) Step(step string) {
	fields := Fields{
		"operation": ol.operation,
		"step":      step,
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithFields(fields).Info("Operation step")
}

// Success completes the operation successfully
func (ol *OperationLogger) Success(message string) {
	duration := time.Since(ol.startTime)
	fields := Fields{
		"operation": ol.operation,
		"duration":  duration.String(),
		"status":    "success",
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithFields(fields).Info(message)
}

// Error completes the operation with an error
func (ol *OperationLogger) Error(err error, message string) {
	duration := time.Since(ol.startTime)
	fields := Fields{
		"operation": ol.operation,
		"duration":  duration.String(),
		"status":    "error",
	}
	for k, v := range ol.fields {
		fields[k] = v
	}

	ol.logger.WithError(err).WithFields(fields).Error(message)
}
