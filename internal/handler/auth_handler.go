package handler

import (
	"net/http"

	"moviestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /auth のHTTP
type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// /auth/* を登録（ClientSessionの下）
func (h *AuthHandler) RegisterRoutes(g *echo.Group) {
	a := g.Group("/auth")
	a.POST("/register", h.register)
	a.POST("/register/google", h.registerGoogle)
	a.POST("/login", h.login)
	a.POST("/login/google", h.loginGoogle)
	a.POST("/logout", h.logout)
	a.GET("/me", h.me)
}

// POST /auth/register
func (h *AuthHandler) register(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.RegisterInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Register(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) registerGoogle(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.FederatedInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.RegisterFederated(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /auth/login
func (h *AuthHandler) login(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.LoginInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Login(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) loginGoogle(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.FederatedInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.LoginFederated(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /auth/logout（カートも消える）
func (h *AuthHandler) logout(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	if err := h.uc.Logout(c.Request().Context(), sf); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) me(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	out, err := h.uc.Me(c.Request().Context(), sf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
