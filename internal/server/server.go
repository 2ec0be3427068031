package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"moviestore/internal/handler"
	"moviestore/internal/metrics"
	"moviestore/internal/middleware"
	"moviestore/internal/repository"
	"moviestore/internal/storefront"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Handlersはルートに載せるハンドラ一式
type Handlers struct {
	Auth     *handler.AuthHandler
	Settings *handler.SettingsHandler
	Cart     *handler.CartHandler
	Movies   *handler.MovieHandler
	Search   *handler.SearchHandler
}

type Options struct {
	Registry     *storefront.Registry
	Verifier     middleware.TokenVerifier
	Users        repository.UserRepository
	Recorder     *metrics.Recorder
	CookieSecure bool
	Logger       *slog.Logger
}

// Newはechoを組み立てる。/api以下はclient_id cookieでクライアントを引く。
func New(h Handlers, opt Options) *echo.Echo {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				log.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if opt.Recorder != nil {
		handler.RegisterMetrics(e, opt.Recorder)
	}

	api := e.Group("/api")
	api.Use(middleware.ClientSession(opt.Registry, opt.CookieSecure))

	h.Auth.RegisterRoutes(api)
	h.Settings.RegisterRoutes(api, opt.Verifier, opt.Users)
	h.Cart.RegisterRoutes(api, opt.Verifier, opt.Users)
	h.Movies.RegisterRoutes(api, opt.Verifier, opt.Users)
	h.Search.RegisterRoutes(api, opt.Verifier, opt.Users)

	return e
}

// Runはctxが終わるまでサーブし、終わったら処理中のリクエストを待って止める
func Run(ctx context.Context, e *echo.Echo, addr string, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
