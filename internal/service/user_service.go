package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/user-api/internal/auth"
	"github.com/spec-kit/user-api/internal/config"
	"github.com/spec-kit/user-api/internal/domain"
	"github.com/spec-kit/user-api/internal/events"
	"github.com/spec-kit/user-api/internal/repository"
)

// UserInput carries writable user fields. Password is plaintext and is hashed before storage.
type UserInput struct {
	Username string
	Email    string
	Role     string
	Password string
}

// UserService manages stored identities.
type UserService struct {
	users      repository.UserRepository
	hasher     PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewUserService builds the service. dispatcher may be nil.
func NewUserService(users repository.UserRepository, hasher PasswordHasher, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, hasher: hasher, dispatcher: dispatcher, logger: logger, now: time.Now}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// Create hashes the password and stores a new user.
func (s *UserService) Create(ctx context.Context, in UserInput) (*domain.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventUserCreated, user, "")
	return user, nil
}

// Update replaces the user's fields. An empty password keeps the stored hash.
func (s *UserService) Update(ctx context.Context, id string, in UserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := user.Username

	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.Username = in.Username
	user.Email = in.Email
	user.Role = in.Role

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if previous == user.Username {
		previous = ""
	}
	s.publish(ctx, events.EventUserUpdated, user, previous)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.EventUserDeleted, user, "")
	return nil
}

// EnsureBootstrap creates the configured bootstrap user when its username is free.
func (s *UserService) EnsureBootstrap(ctx context.Context, b config.BootstrapUser) (bool, error) {
	if !b.Enabled() {
		return false, nil
	}
	_, err := s.users.GetByUsername(ctx, b.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}

	email := b.Email
	if email == "" {
		email = b.Username + "@localhost"
	}
	if _, err := s.Create(ctx, UserInput{Username: b.Username, Email: email, Role: b.Role, Password: b.Password}); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap user created", zap.String("username", b.Username), zap.String("role", b.Role))
	return true, nil
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, user *domain.User, previousUsername string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    user.ID,
		Timestamp: s.now(),
		Payload: events.UserChangedPayload{
			Username:         user.Username,
			PreviousUsername: previousUsername,
			Role:             user.Role,
		},
	}
	if p, ok := auth.PrincipalFrom(ctx); ok {
		event.Actor = p.Subject
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
