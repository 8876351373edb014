package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	assert.NoError(t, err)
	return signed
}

func TestParseUnverified(t *testing.T) {
	raw := sign(t, jwt.MapClaims{
		"user_id": "user-1",
		"role":    "donor",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := ParseUnverified(raw)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "donor", claims.Role)

	// Bearer 前綴也要能讀
	claims, err = ParseUnverified("Bearer " + raw)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	_, err = ParseUnverified("not-a-jwt")
	assert.Error(t, err)
}

func TestCheckNotExpired(t *testing.T) {
	valid := sign(t, jwt.MapClaims{"user_id": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	ok, err := CheckNotExpired(valid)
	assert.NoError(t, err)
	assert.True(t, ok)

	expired := sign(t, jwt.MapClaims{"user_id": "user-1", "exp": time.Now().Add(-time.Minute).Unix()})
	ok, err = CheckNotExpired(expired)
	assert.NoError(t, err)
	assert.False(t, ok)

	// 沒有 exp 視為不過期，由後端以 401 判定
	noExp := sign(t, jwt.MapClaims{"user_id": "user-1"})
	ok, err = CheckNotExpired(noExp)
	assert.NoError(t, err)
	assert.True(t, ok)

	_, err = CheckNotExpired("garbage")
	assert.Error(t, err)
}

func TestStripBearer(t *testing.T) {
	assert.Equal(t, "abc", StripBearer("Bearer abc"))
	assert.Equal(t, "abc", StripBearer("abc"))
}
