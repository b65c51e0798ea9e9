// Package log provides structured logging backed by zerolog.
//
// Components obtain a named logger and attach context once:
//
//	logger := log.GetLoggerWithName("halflife").With(log.ScopeKey, "user-42")
//	logger.Debug("Training step", log.FeaturesKey, 3)
//
// Key/value pairs use the exported key constants so that field names stay
// consistent across components. For event-style logging the underlying
// zerolog logger is available through GetLogger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Standard field keys.
const (
	ModelNameKey  = "model_name"
	ComponentKey  = "component"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	ScopeKey      = "scope"
	FeaturesKey   = "features"
	SamplesKey    = "samples"
	DurationMsKey = "duration_ms"
	ErrorKey      = "error"

	DeltaDaysKey    = "delta_days"
	RecallKey       = "recall_probability"
	HalfLifeKey     = "half_life_days"
	ActualRecallKey = "actual_recall"
	SkippedKey      = "skipped"
)

// Operation and phase values.
const (
	OperationPredict    = "predict"
	OperationTrain      = "train"
	OperationLoad       = "load"
	OperationCheckpoint = "checkpoint"
	OperationEvaluate   = "evaluate"

	PhaseInference = "inference"
	PhaseTraining  = "training"
	PhasePersist   = "persistence"
)

// Logger is the key/value logging interface used by components.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// Level mirrors zerolog levels.
type Level = zerolog.Level

// ToLogLevel parses a level name, defaulting to info.
func ToLogLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ZerologProvider hands out loggers sharing one zerolog root.
type ZerologProvider struct {
	root zerolog.Logger
}

// NewZerologProvider creates a provider writing JSON to stderr.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter creates a provider writing JSON to w.
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	root := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &ZerologProvider{root: root}
}

// GetLogger returns the root logger wrapped in the Logger interface.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{z: p.root}
}

// GetLoggerWithName returns a logger tagged with a component name.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{z: p.root.With().Str(ComponentKey, name).Logger()}
}

// Zerolog exposes the underlying zerolog logger.
func (p *ZerologProvider) Zerolog() *zerolog.Logger {
	return &p.root
}

type zerologLogger struct {
	z zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...interface{}) {
	l.emit(l.z.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...interface{}) {
	l.emit(l.z.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...interface{}) {
	l.emit(l.z.Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...interface{}) {
	l.emit(l.z.Error(), msg, fields)
}

func (l *zerologLogger) With(fields ...interface{}) Logger {
	ctx := l.z.With()
	for i := 0; i < len(fields); i += 2 {
		key, val := pair(fields, i)
		ctx = ctx.Interface(key, val)
	}
	return &zerologLogger{z: ctx.Logger()}
}

func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []interface{}) {
	if e == nil {
		return
	}
	for i := 0; i < len(fields); i += 2 {
		key, val := pair(fields, i)
		switch v := val.(type) {
		case error:
			e = e.AnErr(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

// pair reads the key/value pair starting at i. An odd trailing value is
// logged under "extra".
func pair(fields []interface{}, i int) (string, interface{}) {
	if i+1 >= len(fields) {
		return "extra", fields[i]
	}
	key, ok := fields[i].(string)
	if !ok {
		key = fmt.Sprint(fields[i])
	}
	return key, fields[i+1]
}

var (
	mu             sync.RWMutex
	globalProvider = NewZerologProvider(zerolog.InfoLevel)
)

// SetupLogger replaces the global provider with one at the given level.
func SetupLogger(level string) {
	SetProvider(NewZerologProvider(ToLogLevel(level)))
}

// SetProvider replaces the global provider.
func SetProvider(p *ZerologProvider) {
	mu.Lock()
	defer mu.Unlock()
	globalProvider = p
}

func provider() *ZerologProvider {
	mu.RLock()
	defer mu.RUnlock()
	return globalProvider
}

// GetLogger returns the global zerolog logger for event-style logging.
func GetLogger() *zerolog.Logger {
	return provider().Zerolog()
}

// GetLoggerWithName returns a named logger from the global provider.
func GetLoggerWithName(name string) Logger {
	return provider().GetLoggerWithName(name)
}

// LogError logs err with msg at error level on the global logger.
func LogError(err error, msg string) {
	GetLogger().Error().Err(err).Msg(msg)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &zerologLogger{z: zerolog.Nop()}
}
