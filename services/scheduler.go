package services

import (
	"context"
	"time"

	"iot-hub/usecases"

	"github.com/sirupsen/logrus"
)

// Scheduler is the periodic trigger: every interval it selects the due
// tasks, hands each one to the dispatcher on its own goroutine, and runs
// the device liveness sweep. A store failure skips that cycle only.
type Scheduler struct {
	tasks    *usecases.TaskUseCase
	liveness *usecases.LivenessUseCase
	clock    usecases.Clock
	interval time.Duration
}

func NewScheduler(tasks *usecases.TaskUseCase, liveness *usecases.LivenessUseCase, clock usecases.Clock, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{tasks: tasks, liveness: liveness, clock: clock, interval: interval}
}

// Start launches the ticker loop in a goroutine. It returns immediately;
// cancel the context to stop.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
	logrus.WithField("interval", s.interval).Info("scheduler started")
}

// Tick runs one scheduling cycle.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()

	due, err := s.tasks.SelectDue(now)
	if err != nil {
		logrus.WithError(err).Error("due-task selection failed, skipping cycle")
	} else {
		for _, task := range due {
			logrus.WithFields(logrus.Fields{
				"task_id":   task.ID,
				"name":      task.Name,
				"recurrent": task.IsRecurrent,
			}).Info("task due, dispatching")
			go func(id string) {
				if err := s.tasks.Dispatch(ctx, id); err != nil {
					logrus.WithField("task_id", id).WithError(err).Error("dispatch failed")
				}
			}(task.ID)
		}
	}

	flagged, err := s.liveness.Sweep(now)
	if err != nil {
		logrus.WithError(err).Error("liveness sweep failed")
		return
	}
	if flagged > 0 {
		logrus.WithField("count", flagged).Warn("devices flagged offline by sweep")
	}
}
