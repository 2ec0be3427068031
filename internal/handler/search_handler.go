package handler

import (
	"net/http"

	"moviestore/internal/middleware"
	"moviestore/internal/repository"
	"moviestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ヘッダーの検索欄
type SearchHandler struct {
	uc *usecase.CatalogUsecase
}

func NewSearchHandler(uc *usecase.CatalogUsecase) *SearchHandler {
	return &SearchHandler{uc: uc}
}

type searchRequest struct {
	Query string `json:"query"`
}

// 検索結果の画面はログイン必須なので入力側も同じ
func (h *SearchHandler) RegisterRoutes(g *echo.Group, verifier middleware.TokenVerifier, users repository.UserRepository) {
	sg := g.Group("/search")
	sg.Use(middleware.RequireIdentity(verifier))
	sg.Use(middleware.IdentityGuard(users))
	sg.POST("/input", h.input)
	sg.POST("/submit", h.submit)
	sg.GET("/last", h.last)
}

// 入力のたびに呼ばれる。検索は入力が止まってから走るので202。
func (h *SearchHandler) input(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	h.uc.TriggerSearch(sf, req.Query)
	return c.NoContent(http.StatusAccepted)
}

func (h *SearchHandler) submit(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SubmitSearch(sf, req.Query)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SearchHandler) last(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	out, err := h.uc.LastSearch(sf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
