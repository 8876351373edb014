package errprocess

import (
	"errors"
	"fmt"
	"net/http"

	"giveback_client/pkg/logger"
)

// Kind REST 失敗分類
type Kind int

const (
	// KindNetwork 無法連上後端 (no response)
	KindNetwork Kind = iota
	// KindRejected 後端拒絕 (4xx with message)
	KindRejected
	// KindFault 後端錯誤 (5xx)
	KindFault
	// KindValidation 送出前的必填欄位檢查
	KindValidation
)

// ErrUnauthorized 401 時回傳，呼叫端據此清除憑證
var ErrUnauthorized = errors.New("unauthorized")

// APIError definition one REST failure
type APIError struct {
	Kind   Kind
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Msg, e.Status)
	}
	return e.Msg
}

// Unwrap 讓 errors.Is(err, ErrUnauthorized) 可用
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Network 包裝無回應的網路錯誤
func Network(err error) error {
	logger.Log.Errorf("network error:", err)
	return &APIError{Kind: KindNetwork, Msg: fmt.Sprintf("cannot reach the server: %v", err)}
}

// FromStatus 依 HTTP 狀態碼分類後端錯誤
func FromStatus(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	kind := KindRejected
	if status >= http.StatusInternalServerError {
		kind = KindFault
	}
	e := &APIError{Kind: kind, Status: status, Msg: msg}
	logger.Log.Error(e.Error())
	return e
}

// Validation 回傳欄位驗證錯誤，不打後端
func Validation(msg string) error {
	return &APIError{Kind: KindValidation, Msg: msg}
}

// IsUnauthorized check err is 401
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// KindOf 取出錯誤分類，非 APIError 視為網路錯誤
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}
