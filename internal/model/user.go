package model

import "time"

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	Username       *string   `gorm:"size:64;uniqueIndex" json:"username"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	FirstName      string    `gorm:"size:64;index:idx_users_name,priority:1" json:"first_name"`
	LastName       string    `gorm:"size:64;index:idx_users_name,priority:2" json:"last_name"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	Disabled       bool      `gorm:"not null;default:false" json:"disabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// UsernameOrEmpty dereferences the optional username.
func (u *User) UsernameOrEmpty() string {
	if u == nil || u.Username == nil {
		return ""
	}
	return *u.Username
}
