package application

import (
	"context"
	"errors"

	"github.com/ipede/mfa-service/internal/domain"
	"go.uber.org/zap"
)

// userServiceImpl implements the UserService interface
type userServiceImpl struct {
	users  domain.UserRepository
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users domain.UserRepository, logger *zap.Logger) domain.UserService {
	return &userServiceImpl{
		users:  users,
		logger: logger,
	}
}

// GetMetadata returns the public metadata of a user, including the MFA flag
// while the factor is active
func (s *userServiceImpl) GetMetadata(ctx context.Context, username string) (map[string]interface{}, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Error("Failed to load user",
				zap.String("username", username),
				zap.Error(err))
		}
		return nil, err
	}
	return user.Metadata(), nil
}
