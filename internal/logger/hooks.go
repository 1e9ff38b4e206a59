package logger

import (
	"context"
	"fmt"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	"github.com/maxaizer/dou-jobs-bot/pkg/loki"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"path/filepath"
)

// sourceField marks entries the loki pusher logs about itself so they are not pushed back.
const sourceField = "source"

// errorsHook counts errors per error_type.
type errorsHook struct{}

func (h *errorsHook) Fire(entry *log.Entry) error {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	if !ok {
		errorType = "unknown"
	}
	metrics.ErrorsCounter.WithLabelValues(errorType).Inc()
	return nil
}

func (h *errorsHook) Levels() []log.Level {
	return []log.Level{log.ErrorLevel, log.FatalLevel, log.PanicLevel}
}

type pusherLogger struct{}

func (l *pusherLogger) Error(msg string, args ...any) {
	log.WithFields(log.Fields{"args": args, sourceField: "loki"}).Error(msg)
}

type lokiHook struct {
	pusher *loki.Pusher
	levels []log.Level
}

func newLokiHook(pusher *loki.Pusher, minLevel log.Level) *lokiHook {
	return &lokiHook{
		pusher: pusher,
		levels: lo.Filter(log.AllLevels, func(level log.Level, _ int) bool { return level <= minLevel }),
	}
}

func (h *lokiHook) Fire(entry *log.Entry) error {
	if entry.Data[sourceField] == "loki" {
		return nil
	}

	caller := ""
	if entry.Caller != nil {
		caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.Function), entry.Caller.Line)
	}

	errorType, _ := entry.Data[ErrorTypeField].(string)
	fields := lo.OmitByKeys(map[string]any(entry.Data), []string{ErrorTypeField, log.ErrorKey})
	if err, ok := entry.Data[log.ErrorKey].(error); ok {
		fields[log.ErrorKey] = err.Error()
	}

	return h.pusher.Push(loki.LogEntry{
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Caller:    caller,
		ErrorType: errorType,
		Fields:    fields,
	})
}

func (h *lokiHook) Levels() []log.Level {
	return h.levels
}

func addLokiHook(ctx context.Context, cfg loki.Config, minLevel log.Level) error {
	pusher, err := loki.New(ctx, cfg, &pusherLogger{})
	if err != nil {
		return err
	}
	lokiPusher = pusher
	log.AddHook(newLokiHook(pusher, minLevel))
	log.Info("Loki logging enabled")
	return nil
}
