package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーの分類（errors.Isで判定）
var (
	//401 認証失敗
	ErrAuthentication = errors.New("authentication error")
	//400 入力不正（リモート呼び出しの前に弾く）
	ErrValidation = errors.New("validation error")
	//403 パスワードユーザー以外のプロフィール変更など
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 既に存在する・処理中
	ErrConflict = errors.New("conflict")
	//502 台帳・認証サービスへの書き込み失敗（状態は変えない）
	ErrRemoteWrite = errors.New("remote write failed")
	//502 カタログ・台帳の読み取り失敗
	ErrRemoteRead = errors.New("remote read failed")
)

// HTTPErrorはhandlerがそのままJSONにするエラー
type HTTPError struct {
	Status  int
	Message string
	Kind    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Kind:    kindFor(status),
	}
}

// 分類からステータスを決めて作る
func newError(kind error, message string) error {
	return &HTTPError{
		Status:  statusFor(kind),
		Message: message,
		Kind:    kind,
	}
}

// 入力検証エラー（validatorから使う）
func NewValidationError(message string) error {
	return newError(ErrValidation, message)
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(kind, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, ErrRemoteWrite), errors.Is(kind, ErrRemoteRead):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func kindFor(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}
