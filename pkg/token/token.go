package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set user role
type RoleType string

const (
	// RoleDonor posts items for donation
	RoleDonor RoleType = "donor"
	// RoleDonee requests donated items
	RoleDonee RoleType = "donee"
)

// Claims structure for custom claims in the backend-issued JWT
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ErrInvalidToken token 格式錯誤
var ErrInvalidToken = errors.New("invalid token")

// ParseUnverified 取出 claims，不驗簽
// token 由後端簽發、後端驗證，client 端沒有 secret，只讀取內容
func ParseUnverified(tokenStr string) (*Claims, error) {
	tokenStr = StripBearer(tokenStr)

	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// CheckNotExpired check token not expires
// 沒有 exp claim 視為不過期（交由後端以 401 判定）
func CheckNotExpired(tokenStr string) (bool, error) {
	claims, err := ParseUnverified(tokenStr)
	if err != nil {
		return false, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true, nil
	}
	return exp.After(time.Now()), nil
}

// StripBearer 去掉 "Bearer " 前綴
func StripBearer(t string) string {
	if strings.HasPrefix(t, "Bearer ") {
		return t[7:]
	}
	return t
}
