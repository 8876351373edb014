package guard

import "giveback_client/internal/session/domain"

// Decision 導航檢查的結果，每次導航重新計算，無狀態
type Decision int

const (
	// RedirectLogin 未登入
	RedirectLogin Decision = iota
	// RedirectHome 已登入但角色不符
	RedirectHome
	// Allow 可以進入受保護的 view
	Allow
)

func (d Decision) String() string {
	switch d {
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "allow"
	}
}

// Check gate protected view by session and required role
func Check(s *domain.Session, required domain.Role) Decision {
	if !s.IsAuthenticated() {
		return RedirectLogin
	}
	if s.User.Role != required {
		return RedirectHome
	}
	return Allow
}

// CheckAny 任一登入角色皆可的 view (profile, notifications, chats)
func CheckAny(s *domain.Session) Decision {
	if !s.IsAuthenticated() {
		return RedirectLogin
	}
	return Allow
}
