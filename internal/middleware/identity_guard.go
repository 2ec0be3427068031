package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"moviestore/internal/repository"

	"github.com/labstack/echo/v4"
)

// IdentityGuardは認証サービス側にユーザーがまだ居るか確認する。
// 削除済みならログアウト扱い（401）。RequireIdentityの後に置く。
func IdentityGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//RequireIdentityが入れたuser_idを取得する
			uid, ok := UserIDFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgLoginRequired))
			}

			//DBから最新のuserを取得する
			_, err := users.FindByID(c.Request().Context(), uid)
			if errors.Is(err, repository.ErrUserNotFound) {
				if sf, ok := StorefrontFrom(c); ok {
					if lerr := sf.Logout(c.Request().Context()); lerr != nil {
						slog.Warn("logout of removed user failed", "uid", uid, "err", lerr)
					}
				}
				return c.JSON(http.StatusUnauthorized, errorJSON(msgSessionExpired))
			}
			if err != nil {
				return c.JSON(http.StatusBadGateway, errorJSON("identity service unavailable"))
			}

			return next(c)
		}
	}
}
