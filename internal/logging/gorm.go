package logging

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's query log through zerolog. Queries are logged at
// debug, slow queries at warn and failures at error. Record-not-found is not
// treated as a failure.
type GormLogger struct {
	logger        zerolog.Logger
	slowThreshold time.Duration
}

func NewGormLogger(logger zerolog.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        logger.With().Str("component", "gorm").Logger(),
		slowThreshold: slowThreshold,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	switch level {
	case gormlogger.Silent:
		clone.logger = l.logger.Level(zerolog.Disabled)
	case gormlogger.Error:
		clone.logger = l.logger.Level(zerolog.ErrorLevel)
	case gormlogger.Warn:
		clone.logger = l.logger.Level(zerolog.WarnLevel)
	}
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.logger.Info().Msgf(msg, args...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.logger.Warn().Msgf(msg, args...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.logger.Error().Msgf(msg, args...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.Error().
			Err(err).
			Str("query", sql).
			Int64("rows", rows).
			Dur("duration_ms", elapsed).
			Msg("Database query failed")
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		sql, rows := fc()
		l.logger.Warn().
			Str("query", sql).
			Int64("rows", rows).
			Dur("duration_ms", elapsed).
			Msg("Slow database query")
	case l.logger.GetLevel() <= zerolog.DebugLevel:
		sql, rows := fc()
		l.logger.Debug().
			Str("query", sql).
			Int64("rows", rows).
			Dur("duration_ms", elapsed).
			Msg("Database query")
	}
}
