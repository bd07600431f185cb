package model

import "time"

const (
	RoleAdmin = "admin"

	AdminRolePrimary = "admin"
	AdminRoleSub     = "subAdmin"
)

// User is owned by the account service; this service reads it and stamps
// LastSeen.
type User struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	FullName       string     `json:"fullName"`
	ProfilePicture string     `json:"profilePicture"`
	Role           string     `gorm:"size:32;index" json:"role"`
	AdminRole      string     `gorm:"size:32;index" json:"adminRole"`
	FCMToken       string     `json:"-"`
	LastSeen       *time.Time `json:"lastSeen"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.LastName
}
