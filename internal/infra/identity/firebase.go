package identity

import (
	"context"
	"errors"
	"strings"

	"firebase.google.com/go/v4/auth"

	"moviestore/internal/domain/model"
)

// 外部IdPのIDトークンから取り出した情報
type FederatedClaims struct {
	Subject     string
	Email       string
	DisplayName string
	Provider    model.Provider
}

// IDトークンを検証する約束
type FederatedVerifier interface {
	Verify(ctx context.Context, idToken string) (FederatedClaims, error)
}

// FirebaseVerifier はFirebase AuthのIDトークンを検証する
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (FederatedClaims, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return FederatedClaims{}, ErrInvalidToken
	}

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return FederatedClaims{}, errors.Join(ErrInvalidToken, err)
	}

	uid := strings.TrimSpace(token.UID)
	if uid == "" {
		return FederatedClaims{}, ErrInvalidToken
	}

	c := FederatedClaims{
		Subject:  uid,
		Email:    claimString(token.Claims, "email"),
		Provider: model.Provider(token.Firebase.SignInProvider),
	}
	if c.Provider == "" {
		c.Provider = model.ProviderGoogle
	}

	// nameクレームが無ければユーザーレコードから取る
	c.DisplayName = claimString(token.Claims, "name")
	if c.DisplayName == "" || c.Email == "" {
		rec, err := v.client.GetUser(ctx, uid)
		if err != nil {
			return FederatedClaims{}, err
		}
		if c.DisplayName == "" {
			c.DisplayName = rec.DisplayName
		}
		if c.Email == "" {
			c.Email = rec.Email
		}
	}

	return c, nil
}

func claimString(claims map[string]interface{}, key string) string {
	raw, ok := claims[key]
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}
