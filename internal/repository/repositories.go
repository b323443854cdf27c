package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cleversamer/chatting-app/pkg/logger"
)

type Repositories struct {
	User       UserRepository
	Room       RoomRepository
	Message    MessageRepository
	Assignment AssignmentRepository
	Submission SubmissionRepository
	RateLimit  RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db, log),
		Room:       NewRoomRepository(db, log),
		Message:    NewMessageRepository(db, log),
		Assignment: NewAssignmentRepository(db, log),
		Submission: NewSubmissionRepository(db, log),
		RateLimit:  NewRateLimitRepository(redis, log),
	}
}
