package model

import "time"

// Presence status values stored on the user record.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

type User struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	DisplayName    string    `gorm:"uniqueIndex;size:32;not null" json:"display_name"`
	Email          string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	Bio            string    `gorm:"size:512" json:"bio,omitempty"`
	PhotoURL       string    `gorm:"size:255" json:"photo_url,omitempty"`
	Status         string    `gorm:"size:8;not null;default:'offline';index" json:"status"`
	LastSeen       time.Time `json:"last_seen"`
	FollowerCount  int64     `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int64     `gorm:"not null;default:0" json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"-"`
}

// TableName sets table name for User
func (User) TableName() string {
	return "users"
}

// Profile is the public slice of a user record, safe to show other users.
type Profile struct {
	ID          uint64    `json:"id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Status      string    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		PhotoURL:    u.PhotoURL,
		Status:      u.Status,
		LastSeen:    u.LastSeen,
	}
}
