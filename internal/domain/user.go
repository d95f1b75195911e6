package domain

import "time"

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// MaxUsernameLength matches the username column
const MaxUsernameLength = 64

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                  // Primary key
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"` // Unique username
	Password  string    `gorm:"not null" json:"-"`                                     // Hashed password
	Role      string    `gorm:"type:varchar(16);default:user" json:"role"`             // Role: user or admin
	Wallet    Wallet    `gorm:"constraint:OnUpdate:CASCADE;" json:"wallet"`            // One-to-one relationship with Wallet
	CreatedAt time.Time `json:"created_at"`                                            // Registration time
}

// IsAdmin reports whether the user may read the reporting endpoints
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
