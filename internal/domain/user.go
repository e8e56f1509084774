package domain

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64
	Email        string
	Name         string
	AvatarURL    string
	GoogleID     sql.NullString
	IsVerified   bool
	PasswordHash string
	Plan         PlanID
	PlanRenewsAt time.Time
	CreatedAt    time.Time
}

// UserResponse returns a consistent JSON-friendly map of user data
func (u *User) UserResponse() map[string]interface{} {
	return map[string]interface{}{
		"id":             u.ID,
		"email":          u.Email,
		"name":           u.Name,
		"avatar_url":     u.AvatarURL,
		"plan":           u.Plan,
		"plan_renews_at": u.PlanRenewsAt,
	}
}
