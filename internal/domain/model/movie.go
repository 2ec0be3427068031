package model

// カタログの映画（一覧・詳細共通）
type Movie struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	PosterPath  *string  `json:"poster_path"`
	ReleaseDate string   `json:"release_date"`
	Overview    string   `json:"overview"`
	Tagline     string   `json:"tagline,omitempty"`
	Runtime     int      `json:"runtime,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Rating      float64  `json:"rating"`
}

func (m Movie) ToCartItem() CartItem {
	return CartItem{ID: m.ID, Title: m.Title, PosterPath: m.PosterPath}
}

// 予告編などの動画参照
type Video struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// ページ付きの一覧
type MoviePage struct {
	Results    []Movie `json:"results"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// 選択できるジャンル（TMDBのID）
var Genres = []Genre{
	{ID: 28, Name: "Action"},
	{ID: 12, Name: "Adventure"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedy"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentary"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Family"},
	{ID: 14, Name: "Fantasy"},
	{ID: 36, Name: "History"},
	{ID: 27, Name: "Horror"},
	{ID: 10749, Name: "Romance"},
	{ID: 878, Name: "Sci-Fi"},
	{ID: 10752, Name: "War"},
	{ID: 10770, Name: "TV Movie"},
}

func IsKnownGenre(id int) bool {
	for _, g := range Genres {
		if g.ID == id {
			return true
		}
	}
	return false
}
