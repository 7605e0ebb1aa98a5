package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM output through logrus. Queries go to trace, slow queries
// and query errors go to warn.
type GormLogger struct {
	log           logrus.FieldLogger
	slowThreshold time.Duration
}

func NewGormLogger(log logrus.FieldLogger, slowThreshold time.Duration) *GormLogger {
	if log == nil {
		log = Discard()
	}
	return &GormLogger{log: log.WithField("component", "gorm"), slowThreshold: slowThreshold}
}

func (g *GormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return g }

func (g *GormLogger) Info(_ context.Context, msg string, data ...any) {
	g.log.Debug(fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	g.log.Warn(fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Error(_ context.Context, msg string, data ...any) {
	g.log.Error(fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := g.log.WithFields(logrus.Fields{
		"sql":           sql,
		"rows_affected": rows,
		"duration_ms":   elapsed.Milliseconds(),
	})

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		entry.WithError(err).Warn("query error")
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		entry.Warn("slow query")
	default:
		entry.Trace("sql query")
	}
}
