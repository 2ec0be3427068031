package validator

import (
	"context"
	"regexp"
	"strings"

	"moviestore/internal/domain/model"
	"moviestore/internal/infra/identity"
	"moviestore/internal/usecase"
)

const (
	// 登録時は5つ以上、設定画面ではちょうど2つ
	MinRegisterGenres = 5
	SettingsGenres    = 2
)

const (
	msgAllFieldsRequired = "All fields are required."
	msgPasswordsMismatch = "Passwords do not match."
	msgTooFewGenres      = "Please select at least 5 genres."
	msgInvalidEmail      = "Please enter a valid email address."
	msgLoginRequired     = "Email and password are required."
	msgNameRequired      = "First and last name are required."
	msgNewPwMismatch     = "New passwords do not match."
	msgPasswordRequired  = "Current and new passwords are required."
	msgShortPassword     = "Password should be at least 6 characters."
	msgExactlyTwoGenres  = "Please select exactly 2 genres."
	msgUnknownGenre      = "Unknown genre selected."
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, in usecase.RegisterInput) error {
	// 必須チェック
	if blank(in.FirstName) || blank(in.LastName) || blank(in.Email) || in.Password == "" || in.PasswordConfirm == "" {
		return usecase.NewValidationError(msgAllFieldsRequired)
	}

	if in.Password != in.PasswordConfirm {
		return usecase.NewValidationError(msgPasswordsMismatch)
	}

	// email形式
	if !isEmailLike(in.Email) {
		return usecase.NewValidationError(msgInvalidEmail)
	}

	if countDistinct(in.FavoriteGenres) < MinRegisterGenres {
		return usecase.NewValidationError(msgTooFewGenres)
	}
	if !allKnown(in.FavoriteGenres) {
		return usecase.NewValidationError(msgUnknownGenre)
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if blank(email) || password == "" {
		return usecase.NewValidationError(msgLoginRequired)
	}
	if !isEmailLike(email) {
		return usecase.NewValidationError(msgInvalidEmail)
	}
	return nil
}

func (v *authValidator) ValidateProfile(ctx context.Context, firstName string, lastName string) error {
	if blank(firstName) || blank(lastName) {
		return usecase.NewValidationError(msgNameRequired)
	}
	return nil
}

// パスワード変更。一致チェックは再認証より前。
func (v *authValidator) ValidatePasswordChange(ctx context.Context, in usecase.ChangePasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return usecase.NewValidationError(msgPasswordRequired)
	}
	if in.NewPassword != in.ConfirmPassword {
		return usecase.NewValidationError(msgNewPwMismatch)
	}
	if len(in.NewPassword) < identity.MinPasswordLength {
		return usecase.NewValidationError(msgShortPassword)
	}
	return nil
}

// 設定画面のジャンル
func (v *authValidator) ValidateGenres(ctx context.Context, genres []int) error {
	if len(genres) != SettingsGenres || countDistinct(genres) != SettingsGenres {
		return usecase.NewValidationError(msgExactlyTwoGenres)
	}
	if !allKnown(genres) {
		return usecase.NewValidationError(msgUnknownGenre)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func countDistinct(ids []int) int {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func allKnown(ids []int) bool {
	for _, id := range ids {
		if !model.IsKnownGenre(id) {
			return false
		}
	}
	return true
}
