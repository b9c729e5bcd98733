// Package diag is the diagnostics channel of the runtime.
//
// Everything the runtime considers a recoverable defect — an unhandled task
// error, an action addressed to a collection element that no longer exists, a
// panic recovered inside a task body — is reported here instead of crashing
// the process. The sink is process-wide and swappable: production code keeps
// the zap-backed default, tests install a Recorder and assert on what was
// captured.
//
// Usage:
//
//	rec := diag.NewRecorder()
//	diag.Install(rec)
//	defer diag.Reset()
package diag

import (
	"sync"

	"go.uber.org/zap"
)

// Level classifies a diagnostic.
type Level string

const (
	// LevelWarn covers expected-but-wrong situations: unhandled task errors,
	// actions for missing collection elements.
	LevelWarn Level = "warn"

	// LevelError covers recovered panics and other defects that stopped a
	// unit of work.
	LevelError Level = "error"
)

// Record is one captured diagnostic.
type Record struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Sink receives non-fatal runtime diagnostics.
//
// Implementations must tolerate concurrent calls: task bodies report from
// their own goroutines.
type Sink interface {
	Warn(message string, fields map[string]any)
	Error(message string, fields map[string]any)
}

var (
	mu      sync.RWMutex
	current Sink
)

// Install replaces the process-wide sink. Passing nil restores the default.
func Install(s Sink) {
	mu.Lock()
	defer mu.Unlock()
	current = s
}

// Reset restores the zap-backed default sink. Intended for test teardown.
func Reset() {
	Install(nil)
}

// Current returns the active sink.
func Current() Sink {
	mu.RLock()
	s := current
	mu.RUnlock()
	if s != nil {
		return s
	}

	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
		current = ZapSink{Logger: logger}
	}
	return current
}

// Warn reports through the active sink.
func Warn(message string, fields map[string]any) {
	Current().Warn(message, fields)
}

// Error reports through the active sink.
func Error(message string, fields map[string]any) {
	Current().Error(message, fields)
}

// ZapSink forwards diagnostics to a zap logger as structured fields.
type ZapSink struct {
	Logger *zap.Logger
}

func (zs ZapSink) Warn(message string, fields map[string]any) {
	zs.Logger.Warn(message, zapFields(fields)...)
}

func (zs ZapSink) Error(message string, fields map[string]any) {
	zs.Logger.Error(message, zapFields(fields)...)
}

func zapFields(fields map[string]any) []zap.Field {
	zfs := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfs = append(zfs, zap.Any(k, v))
	}
	return zfs
}

// Nop discards every diagnostic.
type Nop struct{}

func (Nop) Warn(string, map[string]any)  {}
func (Nop) Error(string, map[string]any) {}

// Recorder captures diagnostics for assertions. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Warn(message string, fields map[string]any) {
	r.append(Record{Level: LevelWarn, Message: message, Fields: fields})
}

func (r *Recorder) Error(message string, fields map[string]any) {
	r.append(Record{Level: LevelError, Message: message, Fields: fields})
}

func (r *Recorder) append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a snapshot copy of everything captured so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len reports how many diagnostics were captured.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
