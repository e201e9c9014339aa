package app

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmailExists         = errors.New("email already registered")
	ErrUsernameExists      = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("incorrect username or password")
	ErrInvalidToken        = errors.New("could not validate credentials")
	ErrTokenExpired        = errors.New("token has expired")
	ErrInactiveUser        = errors.New("inactive user")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrWrongOldPassword    = errors.New("old password is incorrect")
	ErrPasswordMismatch    = errors.New("new passwords do not match")
	ErrNotificationEnqueue = errors.New("notification enqueue failed")
)
