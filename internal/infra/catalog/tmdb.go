// Package catalog はTMDB v3の読み取り専用クライアント。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moviestore/internal/domain/model"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound = errors.New("movie not found")
	// ブレーカーが開いている or TMDBが落ちている
	ErrUnavailable = errors.New("catalog unavailable")
)

// TMDBは500ページより先を返さない
const maxPage = 500

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group // 同じ詳細の同時取得をまとめる
}

func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 404は障害として数えない
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
	}
}

// 公開中の映画（ホーム）
func (c *Client) NowPlaying(ctx context.Context, page int) (model.MoviePage, error) {
	return c.listPage(ctx, "/movie/now_playing", url.Values{}, page)
}

func (c *Client) DiscoverByGenre(ctx context.Context, genreID int, page int) (model.MoviePage, error) {
	q := url.Values{}
	q.Set("with_genres", strconv.Itoa(genreID))
	return c.listPage(ctx, "/discover/movie", q, page)
}

func (c *Client) Search(ctx context.Context, query string, page int) (model.MoviePage, error) {
	q := url.Values{}
	q.Set("query", query)
	return c.listPage(ctx, "/search/movie", q, page)
}

// Movie は詳細（runtime, genres, taglineを含む）
func (c *Client) Movie(ctx context.Context, id int64) (model.Movie, error) {
	key := "movie:" + strconv.FormatInt(id, 10)
	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		var m tmdbMovie
		if err := c.getJSON(ctx, fmt.Sprintf("/movie/%d", id), url.Values{}, &m); err != nil {
			return nil, err
		}
		return m.toDomain(), nil
	})
	if err != nil {
		return model.Movie{}, err
	}
	return v.(model.Movie), nil
}

// Trailers はYouTubeの予告編だけ返す
func (c *Client) Trailers(ctx context.Context, id int64) ([]model.Video, error) {
	key := "videos:" + strconv.FormatInt(id, 10)
	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		var res struct {
			Results []model.Video `json:"results"`
		}
		if err := c.getJSON(ctx, fmt.Sprintf("/movie/%d/videos", id), url.Values{}, &res); err != nil {
			return nil, err
		}
		out := make([]model.Video, 0, len(res.Results))
		for _, vid := range res.Results {
			if vid.Type == "Trailer" && vid.Site == "YouTube" {
				out = append(out, vid)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Video), nil
}

func (c *Client) listPage(ctx context.Context, path string, q url.Values, page int) (model.MoviePage, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	q.Set("page", strconv.Itoa(page))

	var res tmdbPage
	if err := c.getJSON(ctx, path, q, &res); err != nil {
		return model.MoviePage{}, err
	}

	out := model.MoviePage{
		Results:    make([]model.Movie, 0, len(res.Results)),
		Page:       res.Page,
		TotalPages: min(res.TotalPages, maxPage),
	}
	for _, m := range res.Results {
		out.Results = append(out.Results, m.toDomain())
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	q.Set("api_key", c.apiKey)
	q.Set("language", "en-US")
	endpoint := c.baseURL + path + "?" + q.Encode()

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: tmdb status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("tmdb status %d", resp.StatusCode)
	}
	return body, nil
}

// -----------------------------------------
// TMDB DTO
// -----------------------------------------

type tmdbMovie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  *string `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	Tagline     string  `json:"tagline"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	Genres      []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

type tmdbPage struct {
	Page       int         `json:"page"`
	Results    []tmdbMovie `json:"results"`
	TotalPages int         `json:"total_pages"`
}

func (m tmdbMovie) toDomain() model.Movie {
	out := model.Movie{
		ID:          m.ID,
		Title:       m.Title,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		Overview:    m.Overview,
		Tagline:     m.Tagline,
		Runtime:     m.Runtime,
		Rating:      m.VoteAverage,
	}
	for _, g := range m.Genres {
		out.Genres = append(out.Genres, g.Name)
	}
	return out
}
