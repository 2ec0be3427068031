package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"moviestore/internal/domain/model"
	"moviestore/internal/infra/identity"
	"moviestore/internal/repository"
)

const (
	msgLoginRequired      = "You must be logged in."
	msgProfileUpdated     = "Profile updated successfully."
	msgProfileFailed      = "Failed to update profile."
	msgPasswordFailed     = "Failed to update password. Please check your current password."
	msgPasswordUpdated    = "Password updated successfully."
	msgGenresFailed       = "Failed to update genres."
	msgGenresUpdated      = "Genre preferences updated."
	msgPasswordUsersOnly  = "Only email/password accounts can change their profile."
	msgPasswordChangeOnly = "Only email/password accounts can change their password."
)

type ProfileInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type GenresInput struct {
	FavoriteGenres []int `json:"favorite_genres"`
}

// 設定画面
type SettingsResponse struct {
	User            SessionDTO            `json:"user"`
	CanEditProfile  bool                  `json:"can_edit_profile"`
	FavoriteGenres  []int                 `json:"favorite_genres"`
	PurchaseHistory model.PurchaseHistory `json:"purchase_history"`
	AvailableGenres []model.Genre         `json:"available_genres"`
}

type SettingsUsecase struct {
	identity  IdentityService
	accounts  repository.AccountRepository
	validator AuthValidator
	log       *slog.Logger
}

func NewSettingsUsecase(
	identity IdentityService,
	accounts repository.AccountRepository,
	validator AuthValidator,
	log *slog.Logger,
) *SettingsUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsUsecase{
		identity:  identity,
		accounts:  accounts,
		validator: validator,
		log:       log,
	}
}

// Getは表示のたびに台帳から購入履歴を取り直す（失敗しても手元の履歴で返す）
func (u *SettingsUsecase) Get(ctx context.Context, sess Session) (SettingsResponse, error) {
	if _, err := requireUser(sess); err != nil {
		return SettingsResponse{}, err
	}

	if err := sess.RefreshPurchases(ctx); err != nil {
		u.log.Warn("settings: purchase history refresh failed", "err", err)
	}

	// refreshの後に読み直す
	user := sess.Identity()
	if user == nil {
		return SettingsResponse{}, newError(ErrAuthentication, msgLoginRequired)
	}

	history := sess.Purchases()
	if history == nil {
		history = model.PurchaseHistory{}
	}
	return SettingsResponse{
		User:            toSessionDTO(user),
		CanEditProfile:  user.IsPasswordUser(),
		FavoriteGenres:  sess.Genres(),
		PurchaseHistory: history,
		AvailableGenres: model.Genres,
	}, nil
}

// UpdateProfileは認証サービスの表示名と台帳の姓名を変える（パスワードユーザーのみ）
func (u *SettingsUsecase) UpdateProfile(ctx context.Context, sess Session, in ProfileInput) (SuccessResponse, error) {
	user, err := requireUser(sess)
	if err != nil {
		return SuccessResponse{}, err
	}
	if !user.IsPasswordUser() {
		return SuccessResponse{}, newError(ErrForbidden, msgPasswordUsersOnly)
	}
	if err := u.validator.ValidateProfile(ctx, in.FirstName, in.LastName); err != nil {
		return SuccessResponse{}, err
	}

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	if err := u.identity.UpdateDisplayName(ctx, user.UID, firstName+" "+lastName); err != nil {
		u.log.Error("settings: update display name failed", "uid", user.UID, "err", err)
		return SuccessResponse{}, newError(ErrRemoteWrite, msgProfileFailed)
	}
	if err := u.accounts.UpdateName(ctx, user.UID, firstName, lastName); err != nil {
		u.log.Error("settings: update account name failed", "uid", user.UID, "err", err)
		return SuccessResponse{}, newError(ErrRemoteWrite, msgProfileFailed)
	}

	if err := sess.UpdateProfile(ctx, firstName, lastName); err != nil {
		return SuccessResponse{}, err
	}
	return SuccessResponse{Message: msgProfileUpdated}, nil
}

// ChangePasswordは現在のパスワードで再認証してから変更する
func (u *SettingsUsecase) ChangePassword(ctx context.Context, sess Session, in ChangePasswordInput) (SuccessResponse, error) {
	user, err := requireUser(sess)
	if err != nil {
		return SuccessResponse{}, err
	}
	if !user.IsPasswordUser() {
		return SuccessResponse{}, newError(ErrForbidden, msgPasswordChangeOnly)
	}
	if err := u.validator.ValidatePasswordChange(ctx, in); err != nil {
		return SuccessResponse{}, err
	}

	if err := u.identity.Reauthenticate(ctx, user.UID, in.CurrentPassword); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return SuccessResponse{}, newError(ErrAuthentication, msgPasswordFailed)
		}
		u.log.Error("settings: reauthenticate failed", "uid", user.UID, "err", err)
		return SuccessResponse{}, newError(ErrRemoteRead, msgPasswordFailed)
	}

	if err := u.identity.UpdatePassword(ctx, user.UID, in.NewPassword); err != nil {
		if errors.Is(err, identity.ErrWeakPassword) {
			return SuccessResponse{}, newError(ErrValidation, msgPasswordFailed)
		}
		u.log.Error("settings: update password failed", "uid", user.UID, "err", err)
		return SuccessResponse{}, newError(ErrRemoteWrite, msgPasswordFailed)
	}

	return SuccessResponse{Message: msgPasswordUpdated}, nil
}

// SetGenresは設定画面のジャンル（ちょうど2つ）を台帳とセッションに反映する
func (u *SettingsUsecase) SetGenres(ctx context.Context, sess Session, in GenresInput) (SuccessResponse, error) {
	user, err := requireUser(sess)
	if err != nil {
		return SuccessResponse{}, err
	}
	if err := u.validator.ValidateGenres(ctx, in.FavoriteGenres); err != nil {
		return SuccessResponse{}, err
	}

	if err := u.accounts.UpdateFavoriteGenres(ctx, user.UID, in.FavoriteGenres); err != nil {
		u.log.Error("settings: update genres failed", "uid", user.UID, "err", err)
		return SuccessResponse{}, newError(ErrRemoteWrite, msgGenresFailed)
	}

	if err := sess.SetGenres(ctx, in.FavoriteGenres); err != nil {
		return SuccessResponse{}, err
	}
	return SuccessResponse{Message: msgGenresUpdated}, nil
}

func requireUser(sess Session) (*model.UserSession, error) {
	user := sess.Identity()
	if user == nil || user.UID == "" {
		return nil, newError(ErrAuthentication, msgLoginRequired)
	}
	return user, nil
}
