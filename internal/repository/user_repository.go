package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"account-service/internal/model"
)

var (
	ErrDuplicateUser       = errors.New("user already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownSortField    = errors.New("unknown sort field")
)

// SortField is a column users may be ordered by.
type SortField string

const (
	SortByID             SortField = "id"
	SortByEmail          SortField = "email"
	SortByUsername       SortField = "username"
	SortByFirstName      SortField = "first_name"
	SortByLastName       SortField = "last_name"
	SortByBalance        SortField = "balance"
	SortByCreatedAt      SortField = "created_at"
	SortByUpdatedAt      SortField = "updated_at"
	SortByLastActivityAt SortField = "last_activity_at"
)

// ParseSortField resolves a client supplied column name. Empty means id.
func ParseSortField(raw string) (SortField, error) {
	switch SortField(raw) {
	case "", SortByID:
		return SortByID, nil
	case SortByEmail:
		return SortByEmail, nil
	case SortByUsername:
		return SortByUsername, nil
	case SortByFirstName:
		return SortByFirstName, nil
	case SortByLastName:
		return SortByLastName, nil
	case SortByBalance:
		return SortByBalance, nil
	case SortByCreatedAt:
		return SortByCreatedAt, nil
	case SortByUpdatedAt:
		return SortByUpdatedAt, nil
	case SortByLastActivityAt:
		return SortByLastActivityAt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortField, raw)
	}
}

type ListFilter struct {
	UserID    *uint
	FirstName *string
	LastName  *string
	SortBy    SortField
	Desc      bool
	Offset    int
	Limit     int
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create user failed: %w", ErrDuplicateUser)
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "query user by username", "username = ?", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "query user by email", "email = ?", email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return r.first(ctx, "query user by id", "id = ?", id)
}

// GetByName returns the oldest user with the given first and last name.
func (r *UserRepository) GetByName(ctx context.Context, firstName, lastName string) (*model.User, error) {
	return r.first(ctx, "query user by name", "first_name = ? AND last_name = ?", firstName, lastName)
}

func (r *UserRepository) List(ctx context.Context, filter ListFilter) ([]model.User, error) {
	query := r.db.WithContext(ctx).Model(&model.User{})
	if filter.UserID != nil {
		query = query.Where("id = ?", *filter.UserID)
	}
	if filter.FirstName != nil {
		query = query.Where("first_name = ?", *filter.FirstName)
	}
	if filter.LastName != nil {
		query = query.Where("last_name = ?", *filter.LastName)
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = SortByID
	}
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: string(sortBy)}, Desc: filter.Desc})
	if sortBy != SortByID {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: string(SortByID)}, Desc: filter.Desc})
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var users []model.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	return users, nil
}

// Withdraw debits amount with one conditional update so that concurrent
// withdrawals can never drive the balance below zero.
func (r *UserRepository) Withdraw(ctx context.Context, id uint, amount int64) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.User{}).
			Where("id = ? AND balance >= ?", id, amount).
			Updates(map[string]any{
				"balance":    gorm.Expr("balance - ?", amount),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		return tx.Model(&model.User{}).Where("id = ?", id).Pluck("balance", &balance).Error
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return 0, err
		}
		return 0, fmt.Errorf("withdraw balance failed: %w", err)
	}
	return balance, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.update(ctx, "update password", id, map[string]any{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	})
}

func (r *UserRepository) UpdateName(ctx context.Context, id uint, firstName, lastName string) error {
	return r.update(ctx, "update name", id, map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
		"updated_at": time.Now(),
	})
}

// TouchActivity leaves updated_at alone; activity is not a profile change.
func (r *UserRepository) TouchActivity(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumn("last_activity_at", at).Error; err != nil {
		return fmt.Errorf("touch activity failed: %w", err)
	}
	return nil
}

func (r *UserRepository) first(ctx context.Context, op, query string, args ...any) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return &user, nil
}

func (r *UserRepository) update(ctx context.Context, op string, id uint, values map[string]any) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(values).Error; err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return nil
}
