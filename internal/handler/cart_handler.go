package handler

import (
	"net/http"
	"strconv"

	"moviestore/internal/middleware"
	"moviestore/internal/repository"
	"moviestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// /cart を登録（ログイン必須）
func (h *CartHandler) RegisterRoutes(g *echo.Group, verifier middleware.TokenVerifier, users repository.UserRepository) {
	cg := g.Group("/cart")
	cg.Use(middleware.RequireIdentity(verifier))
	cg.Use(middleware.IdentityGuard(users))

	cg.GET("", h.getCart)
	cg.POST("/items", h.addItem)
	cg.DELETE("/items/:id", h.deleteItem)
	cg.POST("/next", h.nextPage)
	cg.POST("/prev", h.prevPage)
	cg.POST("/checkout", h.checkout)
	cg.POST("/dismiss", h.dismiss)
}

func (h *CartHandler) getCart(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}
	return c.JSON(http.StatusOK, h.uc.View(c.Request().Context(), sf))
}

func (h *CartHandler) addItem(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req usecase.AddCartInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Add(c.Request().Context(), sf, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.Remove(c.Request().Context(), sf, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) nextPage(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}
	return c.JSON(http.StatusOK, h.uc.Next(c.Request().Context(), sf))
}

func (h *CartHandler) prevPage(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}
	return c.JSON(http.StatusOK, h.uc.Prev(c.Request().Context(), sf))
}

// 結果（成功・失敗メッセージ）はcheckoutフィールドに入る
func (h *CartHandler) checkout(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	out, err := h.uc.Checkout(c.Request().Context(), sf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) dismiss(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}
	return c.JSON(http.StatusOK, h.uc.Dismiss(c.Request().Context(), sf))
}
