package middleware

import (
	"net/http"
	"time"

	"moviestore/internal/storefront"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// ブラウザクライアントを識別するcookie
	ClientCookieName = "client_id"

	CtxStorefrontKey = "storefront" // *storefront.Storefront
	CtxUserIDKey     = "user_id"    // string
)

const clientCookieMaxAge = 365 * 24 * time.Hour

// ClientSessionはclient_id cookieからクライアントの状態コンテナを引く。
// cookieが無い・壊れているときは新しいIDを発行する。
func ClientSession(reg *storefront.Registry, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientID := ""
			if ck, err := c.Cookie(ClientCookieName); err == nil {
				if id, err := uuid.Parse(ck.Value); err == nil {
					clientID = id.String()
				}
			}

			if clientID == "" {
				clientID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     ClientCookieName,
					Value:    clientID,
					Path:     "/",
					MaxAge:   int(clientCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sf, err := reg.Get(c.Request().Context(), clientID)
			if err != nil {
				return c.JSON(http.StatusServiceUnavailable, errorJSON("client state unavailable"))
			}

			c.Set(CtxStorefrontKey, sf)
			return next(c)
		}
	}
}

// StorefrontFromはClientSessionが入れたコンテナを取り出す
func StorefrontFrom(c echo.Context) (*storefront.Storefront, bool) {
	sf, ok := c.Get(CtxStorefrontKey).(*storefront.Storefront)
	return sf, ok && sf != nil
}

// UserIDFromはRequireIdentityが入れたUID
func UserIDFrom(c echo.Context) (string, bool) {
	uid, ok := c.Get(CtxUserIDKey).(string)
	return uid, ok && uid != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
