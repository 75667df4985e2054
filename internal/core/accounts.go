package core

import (
	"errors"
	"fmt"
	"strings"

	"nikolabs.io/companion-service/internal/store"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// AccountService handles the sign-in-or-signup flow and profile updates.
type AccountService struct {
	dbStore *store.SQLiteStore
}

func NewAccountService(db *store.SQLiteStore) *AccountService {
	return &AccountService{dbStore: db}
}

func (s *AccountService) SignUp(email, name string) (*store.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" {
		name = email
	}

	_, err := s.dbStore.GetUserByEmail(email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}

	return s.dbStore.CreateUser(email, name)
}

func (s *AccountService) SignIn(email string) (*store.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.dbStore.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AccountService) GetUser(userID int64) (*store.User, error) {
	user, err := s.dbStore.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AccountService) UpdateProfile(userID int64, selectedPersona, theme *string, notifications *bool) (*store.User, error) {
	user, err := s.dbStore.UpdateUserProfile(userID, selectedPersona, theme, notifications)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
