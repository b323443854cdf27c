package service

import (
	"time"

	"github.com/cleversamer/chatting-app/pkg/logger"
)

// Scheduler fires a callback at (or after) an absolute time. Best effort and
// in-memory: pending events do not survive a process restart. Callbacks of
// cleanup cascades treat "already gone" as success, so a lost or replayed
// timer is harmless.
type Scheduler interface {
	Schedule(at time.Time, fn func())
}

type timerScheduler struct {
	log logger.Logger
}

func NewScheduler(log logger.Logger) Scheduler {
	return &timerScheduler{log: log}
}

func (s *timerScheduler) Schedule(at time.Time, fn func()) {
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	time.AfterFunc(delay, func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("scheduled event panicked", "panic", rec)
			}
		}()
		fn()
	})
}
