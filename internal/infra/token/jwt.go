// Package token はidentity token（HS256のJWT）の発行と検証。
package token

import (
	"errors"
	"time"

	"moviestore/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid identity token")

// トークンから取り出す情報
type Claims struct {
	UID      string
	Email    string
	Provider model.Provider
	Expires  time.Time
}

type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue はログイン時にidentity tokenを発行する
func (i *JWTIssuer) Issue(id model.Identity, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub":      id.UID,
		"email":    id.Email,
		"provider": string(id.Provider),
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify は署名と期限を確認してclaimsを返す
func (i *JWTIssuer) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || parsed == nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	uid, _ := mc["sub"].(string)
	if uid == "" {
		return Claims{}, ErrInvalidToken
	}
	email, _ := mc["email"].(string)
	provider, _ := mc["provider"].(string)

	var exp time.Time
	if v, ok := mc["exp"].(float64); ok {
		exp = time.Unix(int64(v), 0)
	}

	return Claims{UID: uid, Email: email, Provider: model.Provider(provider), Expires: exp}, nil
}
