package user

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	GetUser(ctx context.Context, id int) (User, error)
	CreateUser(ctx context.Context, user User, password string) (User, error)
	Authenticate(ctx context.Context, username, password string) (User, error)
	SetPassword(ctx context.Context, id int, password string) error
	DeleteUser(ctx context.Context, id int) error
}

type ServiceImpl struct {
	repo Repo
	cost int
}

func NewUserService(repo Repo) *ServiceImpl {
	return &ServiceImpl{repo: repo, cost: bcrypt.DefaultCost}
}

// NewUserServiceWithCost is used by tests to keep hashing fast.
func NewUserServiceWithCost(repo Repo, cost int) *ServiceImpl {
	return &ServiceImpl{repo: repo, cost: cost}
}

func (s *ServiceImpl) GetUser(ctx context.Context, id int) (User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *ServiceImpl) CreateUser(ctx context.Context, user User, password string) (User, error) {
	if user.Username == "" {
		return User{}, fmt.Errorf("username is required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = hash
	id, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	user.Id = id
	return user, nil
}

func (s *ServiceImpl) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Debugf("login attempt for unknown user %q", username)
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Debugf("invalid password for user %q", username)
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *ServiceImpl) SetPassword(ctx context.Context, id int, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

func (s *ServiceImpl) hash(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// DeleteUser removes the login; an interviewer profile goes with it.
func (s *ServiceImpl) DeleteUser(ctx context.Context, id int) error {
	return s.repo.DeleteUser(ctx, id)
}
