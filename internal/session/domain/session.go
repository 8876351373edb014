package domain

import "time"

// Role 用來表示使用者角色
type Role string

const (
	// RoleDonor posts items for donation
	RoleDonor Role = "donor"
	// RoleDonee requests donated items
	RoleDonee Role = "donee"
)

// User 用來表示登入的使用者
// 單一可變複本由 session 持有，無並行寫入者
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"userType"`
}

// Session 用來表示一次登入
type Session struct {
	Token     string
	User      User
	CreatedAt time.Time
}

// IsAuthenticated check session 有登入
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != "" && s.User.ID != ""
}

// StoredSession 持久化到本地的格式，token 先經 encrypt.Seal
type StoredSession struct {
	SealedToken []byte    `json:"sealedToken"`
	User        User      `json:"user"`
	SavedAt     time.Time `json:"savedAt"`
}

// LoginResult login API 的回應
type LoginResult struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"userType"`
}
