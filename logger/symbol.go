package logger

import (
	"go.uber.org/zap"
)

// Segment symbols attached to log lines as a structured field so logs stay
// greppable per subsystem without cluttering the message.
const (
	SymSchedule = "⏲"
	SymWatch    = "◉"
	SymPublish  = "✉"
	SymBuild    = "⚙"
	SymDB       = "⊔"
)

// Usage:
//
//	type Scheduler struct {
//	    schedLog *zap.SugaredLogger
//	}
//	s.schedLog = logger.AddScheduleSymbol(baseLogger)

// AddScheduleSymbol wraps a logger with the schedule symbol (⏲)
func AddScheduleSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, SymSchedule)
}

// AddWatchSymbol wraps a logger with the watch symbol (◉)
func AddWatchSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, SymWatch)
}

// AddPublishSymbol wraps a logger with the publish symbol (✉)
func AddPublishSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, SymPublish)
}

// AddBuildSymbol wraps a logger with the build symbol (⚙)
func AddBuildSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, SymBuild)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, SymDB)
}

// WithSymbol returns the global logger with the given symbol as a field.
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}
