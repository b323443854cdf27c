package service

import (
	"github.com/cleversamer/chatting-app/internal/config"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type Services struct {
	Auth       AuthService
	Room       RoomService
	Message    MessageService
	Assignment AssignmentService
	Lifecycle  LifecycleService
	RateLimit  RateLimitService
}

func NewServices(
	repos *repository.Repositories,
	files FileStore,
	sched Scheduler,
	notif Notifier,
	hub Broadcaster,
	cfg *config.Config,
	log logger.Logger,
) *Services {
	return &Services{
		Auth:       NewAuthService(repos.User, cfg.JWT, log),
		Room:       NewRoomService(repos.Room, repos.User, repos.Message, cfg, log),
		Message:    NewMessageService(repos.Message, repos.Room, repos.User, files, hub, log),
		Assignment: NewAssignmentService(repos.Assignment, repos.Submission, repos.Room, repos.User, files, sched, cfg, log),
		Lifecycle:  NewLifecycleService(repos, files, sched, notif, cfg, log),
		RateLimit:  NewRateLimitService(repos.RateLimit, log),
	}
}
