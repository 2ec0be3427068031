package middleware

import (
	"log/slog"
	"net/http"

	"moviestore/internal/infra/token"

	"github.com/labstack/echo/v4"
)

const (
	msgLoginRequired  = "You must be logged in."
	msgSessionExpired = "Your session has expired. Please log in again."
)

// identity tokenの検証
type TokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

// RequireIdentityはセッションに保存されたidentity tokenを検証する。
// 期限切れ・別UIDのトークンならログアウトさせて401。
// ClientSessionの後に置く。
func RequireIdentity(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sf, ok := StorefrontFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgLoginRequired))
			}

			//未ログイン
			user := sf.Identity()
			if user == nil || user.UID == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgLoginRequired))
			}

			//JWTを検証する（署名・期限）
			claims, err := verifier.Verify(user.Token)
			if err != nil || claims.UID != user.UID {
				if lerr := sf.Logout(c.Request().Context()); lerr != nil {
					slog.Warn("logout after expired token failed", "uid", user.UID, "err", lerr)
				}
				return c.JSON(http.StatusUnauthorized, errorJSON(msgSessionExpired))
			}

			//contextへ保存
			c.Set(CtxUserIDKey, claims.UID)

			return next(c)
		}
	}
}
