package handler

import (
	"net/http"

	"moviestore/internal/middleware"
	"moviestore/internal/repository"
	"moviestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /settings のHTTP（ログイン必須）
type SettingsHandler struct {
	uc *usecase.SettingsUsecase
}

func NewSettingsHandler(uc *usecase.SettingsUsecase) *SettingsHandler {
	return &SettingsHandler{uc: uc}
}

func (h *SettingsHandler) RegisterRoutes(g *echo.Group, verifier middleware.TokenVerifier, users repository.UserRepository) {
	s := g.Group("/settings")
	s.Use(middleware.RequireIdentity(verifier))
	s.Use(middleware.IdentityGuard(users))

	s.GET("", h.get)
	s.PUT("/profile", h.updateProfile)
	s.PUT("/password", h.changePassword)
	s.PUT("/genres", h.setGenres)
}

func (h *SettingsHandler) get(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	out, err := h.uc.Get(c.Request().Context(), sf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SettingsHandler) updateProfile(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.ProfileInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateProfile(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SettingsHandler) changePassword(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.ChangePassword(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SettingsHandler) setGenres(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.GenresInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SetGenres(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
