package service

import (
	"context"

	"github.com/cleversamer/chatting-app/internal/config"
	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/jwt"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

// AuthService resolves bearer tokens to users. Account registration and
// credential handling live in a separate identity service; this one only
// needs to know who is calling.
type AuthService interface {
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.Parse(tokenString, s.jwtCfg.AccessSecret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthz, "token", "invalid or expired token", err)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}
