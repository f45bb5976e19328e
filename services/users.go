package services

import (
	"chat-duo/domain"
	"chat-duo/repositories"
)

type IUserService interface {
	Contacts(callerID string) ([]domain.Summary, error)
	ByHandle(handle string) (domain.Summary, error)
}

// UserService is a thin facade over the identity store for the read paths
// the API exposes. Secrets never cross this boundary.
type UserService struct {
	users repositories.IUserRepository
}

func NewUserService(users repositories.IUserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Contacts(callerID string) ([]domain.Summary, error) {
	return s.users.Contacts(callerID)
}

func (s *UserService) ByHandle(handle string) (domain.Summary, error) {
	user, err := s.users.GetByHandle(handle)
	if err != nil {
		return domain.Summary{}, err
	}
	return user.Summary(), nil
}
