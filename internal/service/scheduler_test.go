package service

import (
	"testing"
	"time"

	"github.com/cleversamer/chatting-app/pkg/logger"
)

func TestSchedulerFiresPastDeadlines(t *testing.T) {
	s := NewScheduler(logger.NewNop())

	done := make(chan struct{})
	s.Schedule(time.Now().Add(-time.Second), func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback with past deadline never fired")
	}
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	s := NewScheduler(logger.NewNop())

	fired := make(chan struct{})
	s.Schedule(time.Now(), func() { panic("boom") })
	s.Schedule(time.Now().Add(10*time.Millisecond), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("later callback never fired after a panic")
	}
}
