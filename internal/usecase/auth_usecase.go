package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"moviestore/internal/domain/model"
	"moviestore/internal/infra/identity"
	"moviestore/internal/repository"
)

const (
	msgEmailExists        = "An account with this email already exists."
	msgRegisterFailed     = "Registration failed. "
	msgGoogleRegFailed    = "Google registration failed. "
	msgInvalidCredentials = "Invalid email or password."
	msgNoAccount          = "No account found with this email. Please register first."
	msgNoGoogleAccount    = "No account found for this Google account. Please register first."
	msgGoogleSignInFailed = "Google sign-in failed."
	msgLoginFailed        = "Login failed. Please try again."
	msgTryAgain           = "Please try again."
)

type RegisterInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password2"`
	FavoriteGenres  []int  `json:"favorite_genres"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// federatedはIdPのIDトークンだけ受け取る
type FederatedInput struct {
	IDToken string `json:"id_token"`
}

// ログイン中ユーザーの返却形（トークンは返さない）
type SessionDTO struct {
	UID            string         `json:"uid"`
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Provider       model.Provider `json:"provider"`
	FavoriteGenres []int          `json:"favorite_genres"`
	PurchaseCount  int            `json:"purchase_count"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type AuthUsecase struct {
	identity  IdentityService
	accounts  repository.AccountRepository
	tokens    TokenIssuer
	validator AuthValidator
	now       func() time.Time
	log       *slog.Logger
}

func NewAuthUsecase(
	identity IdentityService,
	accounts repository.AccountRepository,
	tokens TokenIssuer,
	validator AuthValidator,
	log *slog.Logger,
) *AuthUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &AuthUsecase{
		identity:  identity,
		accounts:  accounts,
		tokens:    tokens,
		validator: validator,
		now:       time.Now,
		log:       log,
	}
}

// Registerはパスワードで登録し、空の購入履歴で台帳を作ってログインする
func (u *AuthUsecase) Register(ctx context.Context, sess Session, in RegisterInput) (SessionDTO, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, in); err != nil {
		return SessionDTO{}, err
	}

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	id, err := u.identity.SignUp(ctx, in.Email, in.Password, firstName+" "+lastName)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return SessionDTO{}, newError(ErrConflict, msgEmailExists)
		case errors.Is(err, identity.ErrWeakPassword):
			return SessionDTO{}, newError(ErrValidation, msgRegisterFailed+capitalize(err.Error())+".")
		}
		u.log.Error("register: sign-up failed", "err", err)
		return SessionDTO{}, newError(ErrRemoteWrite, msgRegisterFailed+msgTryAgain)
	}

	acct := &model.Account{
		UID:            id.UID,
		FirstName:      firstName,
		LastName:       lastName,
		Email:          id.Email,
		FavoriteGenres: in.FavoriteGenres,
		Purchases:      model.PurchaseHistory{},
	}
	if err := u.createAccount(ctx, acct, msgRegisterFailed); err != nil {
		return SessionDTO{}, err
	}

	return u.adopt(ctx, sess, id, acct)
}

// RegisterFederatedはIdPのアカウントで登録する（ジャンルは空）
func (u *AuthUsecase) RegisterFederated(ctx context.Context, sess Session, in FederatedInput) (SessionDTO, error) {
	if strings.TrimSpace(in.IDToken) == "" {
		return SessionDTO{}, NewHTTPError(http.StatusBadRequest, "id_token is required")
	}

	id, err := u.identity.SignInFederated(ctx, in.IDToken)
	if err != nil {
		return SessionDTO{}, u.federatedError(err, msgGoogleRegFailed+msgTryAgain)
	}

	firstName, lastName := splitDisplayName(id.DisplayName)
	acct := &model.Account{
		UID:            id.UID,
		FirstName:      firstName,
		LastName:       lastName,
		Email:          id.Email,
		FavoriteGenres: []int{},
		Purchases:      model.PurchaseHistory{},
	}
	if err := u.createAccount(ctx, acct, msgGoogleRegFailed); err != nil {
		return SessionDTO{}, err
	}

	return u.adopt(ctx, sess, id, acct)
}

// Loginは認証してから台帳のプロフィール・ジャンル・購入履歴を採用する
func (u *AuthUsecase) Login(ctx context.Context, sess Session, in LoginInput) (SessionDTO, error) {
	if err := u.validator.ValidateLogin(ctx, in.Email, in.Password); err != nil {
		return SessionDTO{}, err
	}

	id, err := u.identity.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return SessionDTO{}, newError(ErrAuthentication, msgInvalidCredentials)
		}
		u.log.Error("login: sign-in failed", "err", err)
		return SessionDTO{}, newError(ErrRemoteRead, msgLoginFailed)
	}

	acct, err := u.findAccount(ctx, id.UID, msgNoAccount)
	if err != nil {
		return SessionDTO{}, err
	}
	return u.adopt(ctx, sess, id, acct)
}

func (u *AuthUsecase) LoginFederated(ctx context.Context, sess Session, in FederatedInput) (SessionDTO, error) {
	if strings.TrimSpace(in.IDToken) == "" {
		return SessionDTO{}, NewHTTPError(http.StatusBadRequest, "id_token is required")
	}

	id, err := u.identity.SignInFederated(ctx, in.IDToken)
	if err != nil {
		return SessionDTO{}, u.federatedError(err, msgGoogleSignInFailed)
	}

	acct, err := u.findAccount(ctx, id.UID, msgNoGoogleAccount)
	if err != nil {
		return SessionDTO{}, err
	}
	return u.adopt(ctx, sess, id, acct)
}

// Logoutはidentityを外す（カートも捨てられる）
func (u *AuthUsecase) Logout(ctx context.Context, sess Session) error {
	if err := sess.Logout(ctx); err != nil {
		u.log.Error("logout: persist failed", "err", err)
		return err
	}
	return nil
}

// Meは現在のログイン状態
func (u *AuthUsecase) Me(ctx context.Context, sess Session) (SessionDTO, error) {
	user := sess.Identity()
	if user == nil {
		return SessionDTO{}, newError(ErrAuthentication, msgLoginRequired)
	}
	return toSessionDTO(user), nil
}

func (u *AuthUsecase) createAccount(ctx context.Context, acct *model.Account, prefix string) error {
	if err := u.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return newError(ErrConflict, msgEmailExists)
		}
		u.log.Error("register: create account failed", "uid", acct.UID, "err", err)
		return newError(ErrRemoteWrite, prefix+msgTryAgain)
	}
	return nil
}

func (u *AuthUsecase) findAccount(ctx context.Context, uid string, notFoundMsg string) (*model.Account, error) {
	acct, err := u.accounts.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newError(ErrNotFound, notFoundMsg)
		}
		u.log.Error("login: read account failed", "uid", uid, "err", err)
		return nil, newError(ErrRemoteRead, msgLoginFailed)
	}
	return acct, nil
}

func (u *AuthUsecase) federatedError(err error, fallback string) error {
	switch {
	case errors.Is(err, identity.ErrFederatedDisabled):
		return newError(ErrValidation, "Google sign-in is not available.")
	case errors.Is(err, identity.ErrInvalidToken):
		return newError(ErrAuthentication, fallback)
	case errors.Is(err, repository.ErrEmailTaken):
		return newError(ErrConflict, msgEmailExists)
	}
	u.log.Error("federated sign-in failed", "err", err)
	return newError(ErrRemoteRead, fallback)
}

// adoptはトークンを発行してセッションに載せる。UIDが変わればカートは捨てられる。
func (u *AuthUsecase) adopt(ctx context.Context, sess Session, id model.Identity, acct *model.Account) (SessionDTO, error) {
	token, expiresAt, err := u.tokens.Issue(id, u.now())
	if err != nil {
		return SessionDTO{}, err
	}

	genres := acct.FavoriteGenres
	if genres == nil {
		genres = []int{}
	}
	user := &model.UserSession{
		UID:            id.UID,
		Token:          token,
		TokenExpiresAt: expiresAt,
		Email:          id.Email,
		FirstName:      acct.FirstName,
		LastName:       acct.LastName,
		Provider:       id.Provider,
		FavoriteGenres: genres,
		Purchases:      acct.Purchases,
	}
	if err := sess.Login(ctx, user); err != nil {
		return SessionDTO{}, err
	}
	return toSessionDTO(user), nil
}

func toSessionDTO(u *model.UserSession) SessionDTO {
	genres := u.FavoriteGenres
	if genres == nil {
		genres = []int{}
	}
	return SessionDTO{
		UID:            u.UID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Provider:       u.Provider,
		FavoriteGenres: genres,
		PurchaseCount:  len(u.Purchases),
		ExpiresAt:      u.TokenExpiresAt,
	}
}

// 表示名の先頭2語を姓名にする
func splitDisplayName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[1]
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
