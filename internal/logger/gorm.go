package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger 将 gorm 的 SQL 日志转发到 zap
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	base          func() *zap.SugaredLogger
}

// NewGormLogger 创建 gorm 日志桥接，slowThreshold<=0 时不输出慢查询
func NewGormLogger(debug bool, slowThreshold time.Duration) *GormLogger {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return &GormLogger{level: level, slowThreshold: slowThreshold, base: S}
}

// LogMode 实现 gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.base().Infow("gorm_info", "detail", fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.base().Warnw("gorm_warn", "detail", fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.base().Errorw("gorm_error", "detail", fmt.Sprintf(msg, args...))
	}
}

// Trace 记录单条 SQL；记录不存在不视为错误
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.base().Errorw("gorm_query_failed", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds(), "error", err)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.base().Warnw("gorm_slow_query", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds())
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.base().Debugw("gorm_query", "sql", sql, "rows", rows, "elapsed_ms", elapsed.Milliseconds())
	}
}
