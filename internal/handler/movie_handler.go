package handler

import (
	"net/http"
	"strconv"

	"moviestore/internal/middleware"
	"moviestore/internal/repository"
	"moviestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 映画一覧・詳細
type MovieHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewMovieHandler(uc *usecase.CatalogUsecase) *MovieHandler {
	return &MovieHandler{uc: uc}
}

// 映画のルートを登録。ホーム（now-playing）とジャンル一覧だけ公開。
func (h *MovieHandler) RegisterRoutes(g *echo.Group, verifier middleware.TokenVerifier, users repository.UserRepository) {
	g.GET("/genres", h.genres)
	g.GET("/movies/now-playing", h.nowPlaying)

	mg := g.Group("/movies")
	mg.Use(middleware.RequireIdentity(verifier))
	mg.Use(middleware.IdentityGuard(users))

	mg.GET("/genre/:id", h.byGenre)
	mg.GET("/search", h.search)
	mg.GET("/:id", h.detail)
}

func (h *MovieHandler) genres(c echo.Context) error {
	return c.JSON(http.StatusOK, h.uc.Genres())
}

func (h *MovieHandler) nowPlaying(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	page, err := pageParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}

	out, err := h.uc.NowPlaying(c.Request().Context(), sf, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MovieHandler) byGenre(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	genreID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid genre_id"})
	}
	page, err := pageParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}

	out, err := h.uc.ByGenre(c.Request().Context(), sf, genreID, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MovieHandler) search(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	page, err := pageParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}

	out, err := h.uc.Search(c.Request().Context(), sf, c.QueryParam("q"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MovieHandler) detail(c echo.Context) error {
	sf, ok := clientFrom(c)
	if !ok {
		return noClient(c)
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid movie id"})
	}

	out, err := h.uc.Detail(c.Request().Context(), sf, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// page（default 1）
func pageParam(c echo.Context) (int, error) {
	v := c.QueryParam("page")
	if v == "" {
		return 1, nil
	}
	return strconv.Atoi(v)
}
