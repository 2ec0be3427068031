// Package identity は認証サービス（パスワード認証とFirebaseのfederated認証）。
package identity

import (
	"context"
	"errors"
	"strings"

	"moviestore/internal/domain/model"
	"moviestore/internal/repository"
)

var (
	// メールまたはパスワードが違う
	ErrInvalidCredentials = errors.New("invalid credentials")
	// IDトークンが不正
	ErrInvalidToken = errors.New("invalid id token")
	// Firebase未設定
	ErrFederatedDisabled = errors.New("federated sign-in is not configured")
	ErrWeakPassword      = errors.New("password should be at least 6 characters")
)

const MinPasswordLength = 6

// Provider はusersテーブルを使う認証サービス
type Provider struct {
	users     repository.UserRepository
	hasher    PasswordHasher
	verifier  PasswordVerifier
	idGen     IDGenerator
	clock     Clock
	federated FederatedVerifier // nilならfederatedは無効
}

// DI
func NewProvider(
	users repository.UserRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	idGen IDGenerator,
	clock Clock,
	federated FederatedVerifier,
) *Provider {
	return &Provider{
		users:     users,
		hasher:    hasher,
		verifier:  verifier,
		idGen:     idGen,
		clock:     clock,
		federated: federated,
	}
}

// SignUp はメール/パスワードでユーザーを作る。
func (p *Provider) SignUp(ctx context.Context, email string, password string, displayName string) (model.Identity, error) {
	email = normalizeEmail(email)
	if len(password) < MinPasswordLength {
		return model.Identity{}, ErrWeakPassword
	}

	// email重複チェック
	existing, err := p.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return model.Identity{}, repository.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return model.Identity{}, err
	}

	hashed, err := p.hasher.Hash(password)
	if err != nil {
		return model.Identity{}, err
	}

	now := p.clock.Now()
	user := &model.User{
		ID:           p.idGen.NewID(),
		Email:        email,
		PasswordHash: hashed, // 平文は保存しない
		DisplayName:  strings.TrimSpace(displayName),
		Provider:     model.ProviderPassword,
		LastLoginAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return model.Identity{}, err
	}

	return toIdentity(user), nil
}

// SignIn はメール/パスワードで認証する
func (p *Provider) SignIn(ctx context.Context, email string, password string) (model.Identity, error) {
	user, err := p.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Identity{}, ErrInvalidCredentials
		}
		return model.Identity{}, err
	}

	// federatedのみのユーザーはパスワードを持たない
	if user.PasswordHash == "" || !p.verifier.Verify(password, user.PasswordHash) {
		return model.Identity{}, ErrInvalidCredentials
	}

	//最終ログイン時刻更新
	now := p.clock.Now()
	user.LastLoginAt = &now
	if err := p.users.Update(ctx, user); err != nil {
		return model.Identity{}, err
	}

	return toIdentity(user), nil
}

// SignInFederated はIDトークンを検証し、初回ならユーザーを作る。
func (p *Provider) SignInFederated(ctx context.Context, idToken string) (model.Identity, error) {
	if p.federated == nil {
		return model.Identity{}, ErrFederatedDisabled
	}

	claims, err := p.federated.Verify(ctx, idToken)
	if err != nil {
		return model.Identity{}, err
	}

	now := p.clock.Now()
	user, err := p.users.FindByExternalID(ctx, claims.Subject)
	switch {
	case err == nil:
		user.LastLoginAt = &now
		if claims.DisplayName != "" {
			user.DisplayName = claims.DisplayName
		}
		if err := p.users.Update(ctx, user); err != nil {
			return model.Identity{}, err
		}
		return toIdentity(user), nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return model.Identity{}, err
	}

	subject := claims.Subject
	user = &model.User{
		ID:          p.idGen.NewID(),
		Email:       normalizeEmail(claims.Email),
		DisplayName: claims.DisplayName,
		Provider:    claims.Provider,
		ExternalID:  &subject,
		LastLoginAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// 同じemailのパスワードユーザーがいればErrEmailTaken
	if err := p.users.Create(ctx, user); err != nil {
		return model.Identity{}, err
	}
	return toIdentity(user), nil
}

// Reauthenticate はパスワード変更前の再確認
func (p *Provider) Reauthenticate(ctx context.Context, uid string, password string) error {
	user, err := p.users.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if user.PasswordHash == "" || !p.verifier.Verify(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

func (p *Provider) UpdatePassword(ctx context.Context, uid string, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	user, err := p.users.FindByID(ctx, uid)
	if err != nil {
		return err
	}

	hashed, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	user.UpdatedAt = p.clock.Now()
	return p.users.Update(ctx, user)
}

func (p *Provider) UpdateDisplayName(ctx context.Context, uid string, displayName string) error {
	user, err := p.users.FindByID(ctx, uid)
	if err != nil {
		return err
	}
	user.DisplayName = strings.TrimSpace(displayName)
	user.UpdatedAt = p.clock.Now()
	return p.users.Update(ctx, user)
}

func toIdentity(u *model.User) model.Identity {
	return model.Identity{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Provider:    u.Provider,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
