package app

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"account-service/internal/model"
	"account-service/internal/pkg/password"
	"account-service/internal/repository"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type AccountService struct {
	userRepo *repository.UserRepository
	hasher   *password.Hasher
	logger   *logrus.Logger
}

type UpdateProfileInput struct {
	Email        string
	FirstName    string
	LastName     string
	NewFirstName string
	NewLastName  string
}

type ChangePasswordInput struct {
	Email              string
	Password           string
	NewPassword        string
	ConfirmNewPassword string
}

type ListUsersInput struct {
	UserID    *uint
	FirstName *string
	LastName  *string
	SortBy    string
	Order     string
	Skip      *int
	Limit     *int
}

func NewAccountService(userRepo *repository.UserRepository, hasher *password.Hasher, logger *logrus.Logger) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		hasher:   hasher,
		logger:   logger,
	}
}

func (s *AccountService) GetProfile(ctx context.Context, firstName, lastName string) (*model.User, error) {
	return s.userByName(ctx, firstName, lastName)
}

func (s *AccountService) GetBalance(ctx context.Context, firstName, lastName string) (int64, error) {
	user, err := s.userByName(ctx, firstName, lastName)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

func (s *AccountService) Withdraw(ctx context.Context, firstName, lastName string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidInput
	}

	user, err := s.userByName(ctx, firstName, lastName)
	if err != nil {
		return 0, err
	}

	balance, err := s.userRepo.Withdraw(ctx, user.ID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			s.logger.WithFields(logrus.Fields{
				"user_id": user.ID,
				"amount":  amount,
			}).Warn("withdraw rejected, insufficient funds")
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"amount":      amount,
		"new_balance": balance,
	}).Info("balance withdrawn")
	return balance, nil
}

// UpdateProfile renames the user found by the current name pair. The new pair
// is not checked for uniqueness; later name lookups resolve to the lowest id.
func (s *AccountService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*model.User, error) {
	newFirst := strings.TrimSpace(input.NewFirstName)
	newLast := strings.TrimSpace(input.NewLastName)
	if newFirst == "" || newLast == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userByName(ctx, input.FirstName, input.LastName)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateName(ctx, user.ID, newFirst, newLast); err != nil {
		return nil, err
	}
	user.FirstName = newFirst
	user.LastName = newLast

	s.logger.WithField("user_id", user.ID).Info("profile updated")
	return user, nil
}

// ChangePassword reports NotFound, then WrongOldPassword, then Mismatch, and
// leaves the stored hash untouched on any failure.
func (s *AccountService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		s.logger.WithField("user_id", user.ID).Warn("password change rejected, old password incorrect")
		return ErrWrongOldPassword
	}
	if input.NewPassword != input.ConfirmNewPassword {
		return ErrPasswordMismatch
	}
	if input.NewPassword == "" {
		return ErrInvalidInput
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return ErrInvalidInput
		}
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.logger.WithField("user_id", user.ID).Info("password changed")
	return nil
}

func (s *AccountService) ListUsers(ctx context.Context, input ListUsersInput) ([]model.User, error) {
	sortBy, err := repository.ParseSortField(input.SortBy)
	if err != nil {
		return nil, ErrInvalidInput
	}

	var desc bool
	switch strings.ToLower(input.Order) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, ErrInvalidInput
	}

	skip := 0
	if input.Skip != nil {
		if *input.Skip < 0 {
			return nil, ErrInvalidInput
		}
		skip = *input.Skip
	}
	limit := DefaultListLimit
	if input.Limit != nil {
		if *input.Limit < 1 || *input.Limit > MaxListLimit {
			return nil, ErrInvalidInput
		}
		limit = *input.Limit
	}

	return s.userRepo.List(ctx, repository.ListFilter{
		UserID:    input.UserID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		SortBy:    sortBy,
		Desc:      desc,
		Offset:    skip,
		Limit:     limit,
	})
}

func (s *AccountService) userByName(ctx context.Context, firstName, lastName string) (*model.User, error) {
	user, err := s.userRepo.GetByName(ctx, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.WithFields(logrus.Fields{
			"first_name": firstName,
			"last_name":  lastName,
		}).Warn("user not found by name")
		return nil, ErrUserNotFound
	}
	return user, nil
}
