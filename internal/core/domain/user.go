package domain

import "time"

// User is a registered account. Username is the immutable primary key.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	JoinedAt     time.Time `json:"join_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// UserSummary is the public listing view of a user.
type UserSummary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserContact is the view of a user embedded in message details.
type UserContact struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Contact returns the message-embedded view of u.
func (u *User) Contact() UserContact {
	return UserContact{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
