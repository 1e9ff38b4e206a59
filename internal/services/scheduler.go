package services

import (
	"context"
	"fmt"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"time"
)

type passRunner interface {
	RunFullPass(ctx context.Context)
}

type auditor interface {
	Audit(ctx context.Context)
}

// Scheduler periodically triggers the pipeline pass and the delivery audit. A pass that is
// still running when the next tick fires makes the tick a no-op.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
}

func NewScheduler(pipeline passRunner, auditor auditor, interval time.Duration) (*Scheduler, error) {

	if interval <= 0 {
		return nil, fmt.Errorf("pipeline interval must be positive, got %v", interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{}),
			cron.SkipIfStillRunning(cronLogger{}),
		)),
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() { pipeline.RunFullPass(s.ctx) }); err != nil {
		cancel()
		return nil, err
	}

	if auditor != nil {
		if _, err := s.cron.AddFunc("@hourly", func() { auditor.Audit(s.ctx) }); err != nil {
			cancel()
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("scheduler started, pipeline interval: %v", s.interval)
}

// Stop cancels the running pass and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info("scheduler stopped")
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(cronFields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithFields(cronFields(keysAndValues)).Errorf("%s: %v", msg, err)
}

func cronFields(keysAndValues []interface{}) log.Fields {
	fields := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
