package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"moviestore/internal/cart"
	"moviestore/internal/domain/model"
	"moviestore/internal/infra/catalog"
	"moviestore/internal/storefront"
)

const (
	msgFetchFailed   = "Error fetching movies."
	msgMovieNotFound = "Movie not found."
)

// 一覧（ボタン表示つき）
type MovieListResponse struct {
	Results    []storefront.ListedMovie `json:"results"`
	Page       int                      `json:"page"`
	TotalPages int                      `json:"total_pages"`
}

type MovieDetailResponse struct {
	Movie    model.Movie   `json:"movie"`
	Status   cart.Status   `json:"status"`
	Trailers []model.Video `json:"trailers"`
}

// debounceされた検索の結果
type SearchResultResponse struct {
	Query      string                   `json:"query"`
	Results    []storefront.ListedMovie `json:"results"`
	Page       int                      `json:"page"`
	TotalPages int                      `json:"total_pages"`
	Error      string                   `json:"error,omitempty"`
	At         time.Time                `json:"at"`
}

// 検索欄（*storefront.Storefront）
type Searcher interface {
	Annotator
	TriggerSearch(query string)
	SubmitSearch(query string) (storefront.SearchResult, bool)
	LastSearch() (storefront.SearchResult, bool)
}

var _ Searcher = (*storefront.Storefront)(nil)

type CatalogUsecase struct {
	catalog Catalog
	log     *slog.Logger
}

func NewCatalogUsecase(c Catalog, log *slog.Logger) *CatalogUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogUsecase{catalog: c, log: log}
}

func (u *CatalogUsecase) Genres() []model.Genre {
	return model.Genres
}

// NowPlayingはホームの一覧
func (u *CatalogUsecase) NowPlaying(ctx context.Context, a Annotator, page int) (MovieListResponse, error) {
	if page < 1 {
		return MovieListResponse{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	res, err := u.catalog.NowPlaying(ctx, page)
	if err != nil {
		return MovieListResponse{}, u.fetchError("now playing", err)
	}
	return toListResponse(a, res), nil
}

func (u *CatalogUsecase) ByGenre(ctx context.Context, a Annotator, genreID int, page int) (MovieListResponse, error) {
	if !model.IsKnownGenre(genreID) {
		return MovieListResponse{}, NewHTTPError(http.StatusBadRequest, "invalid genre_id")
	}
	if page < 1 {
		return MovieListResponse{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	res, err := u.catalog.DiscoverByGenre(ctx, genreID, page)
	if err != nil {
		return MovieListResponse{}, u.fetchError("discover", err)
	}
	return toListResponse(a, res), nil
}

// Searchは検索結果画面（ページ指定あり）
func (u *CatalogUsecase) Search(ctx context.Context, a Annotator, query string, page int) (MovieListResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return MovieListResponse{}, NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if page < 1 {
		return MovieListResponse{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	res, err := u.catalog.Search(ctx, query, page)
	if err != nil {
		return MovieListResponse{}, u.fetchError("search", err)
	}
	return toListResponse(a, res), nil
}

// Detailは詳細と予告編。予告編の取得失敗は空で返す。
func (u *CatalogUsecase) Detail(ctx context.Context, a Annotator, id int64) (MovieDetailResponse, error) {
	if id <= 0 {
		return MovieDetailResponse{}, NewHTTPError(http.StatusBadRequest, "invalid movie id")
	}
	m, err := u.catalog.Movie(ctx, id)
	if err != nil {
		return MovieDetailResponse{}, u.fetchError("movie", err)
	}

	trailers, err := u.catalog.Trailers(ctx, id)
	if err != nil {
		u.log.Warn("catalog: trailers failed", "movie_id", id, "err", err)
		trailers = []model.Video{}
	}

	return MovieDetailResponse{
		Movie:    m,
		Status:   a.StatusOf(m.ID),
		Trailers: trailers,
	}, nil
}

// TriggerSearchは入力のたびに呼ぶ（一定時間入力が止まったら検索が走る）
func (u *CatalogUsecase) TriggerSearch(s Searcher, query string) {
	s.TriggerSearch(query)
}

// SubmitSearchは待たずに検索する
func (u *CatalogUsecase) SubmitSearch(s Searcher, query string) (SearchResultResponse, error) {
	if strings.TrimSpace(query) == "" {
		return SearchResultResponse{}, NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	res, ok := s.SubmitSearch(query)
	if !ok {
		return SearchResultResponse{}, NewHTTPError(http.StatusNotFound, "no search has run")
	}
	return toSearchResponse(s, res), nil
}

func (u *CatalogUsecase) LastSearch(s Searcher) (SearchResultResponse, error) {
	res, ok := s.LastSearch()
	if !ok {
		return SearchResultResponse{}, NewHTTPError(http.StatusNotFound, "no search has run")
	}
	return toSearchResponse(s, res), nil
}

func (u *CatalogUsecase) fetchError(op string, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return newError(ErrNotFound, msgMovieNotFound)
	}
	u.log.Warn("catalog: fetch failed", "op", op, "err", err)
	return newError(ErrRemoteRead, msgFetchFailed)
}

func toListResponse(a Annotator, res model.MoviePage) MovieListResponse {
	return MovieListResponse{
		Results:    a.Annotate(res.Results),
		Page:       res.Page,
		TotalPages: res.TotalPages,
	}
}

func toSearchResponse(a Annotator, res storefront.SearchResult) SearchResultResponse {
	return SearchResultResponse{
		Query:      res.Query,
		Results:    a.Annotate(res.Results.Results),
		Page:       res.Results.Page,
		TotalPages: res.Results.TotalPages,
		Error:      res.Error,
		At:         res.At,
	}
}
