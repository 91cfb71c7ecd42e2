package model

import "errors"

// SearchRequest is the request body for POST /api/search.
type SearchRequest struct {
	Query          string `json:"query" validate:"required,min=2,max=500"`
	IncludeMovies  bool   `json:"includeMovies"`
	IncludeTVShows bool   `json:"includeTvShows"`
	Language       string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	Country        string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// Suggestion is one title proposed by the language model, before TMDB enrichment.
type Suggestion struct {
	Title  string `json:"title"`
	Year   int    `json:"year,omitempty"`
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// StreamingProvider is a service a title can be streamed on in the requested country.
type StreamingProvider struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LogoPath string `json:"logoPath,omitempty"`
}

// Title is TMDB metadata for a suggestion.
type Title struct {
	TMDBID       int64               `json:"tmdbId"`
	MediaType    string              `json:"mediaType"`
	Title        string              `json:"title"`
	Overview     string              `json:"overview"`
	PosterPath   string              `json:"posterPath,omitempty"`
	BackdropPath string              `json:"backdropPath,omitempty"`
	ReleaseDate  string              `json:"releaseDate,omitempty"`
	VoteAverage  float64             `json:"voteAverage"`
	Providers    []StreamingProvider `json:"providers"`
}

// Recommendation is a single search result.
type Recommendation struct {
	Title
	Reason string `json:"reason,omitempty"`
}

// SearchResponse is returned by POST /api/search.
type SearchResponse struct {
	Query           string           `json:"query"`
	Recommendations []Recommendation `json:"recommendations"`
}

var (
	// ErrNothingToSearch is returned when neither movies nor TV shows are requested
	ErrNothingToSearch = errors.New("at least one of includeMovies or includeTvShows must be true")

	// ErrTitleNotFound is returned when TMDB has no match for a suggestion
	ErrTitleNotFound = errors.New("title not found")

	// ErrUpstreamTimeout is returned when a third-party API did not answer in time
	ErrUpstreamTimeout = errors.New("upstream request timed out")
)

// Search API error codes
const (
	CodeTimeout = "TIMEOUT"
)
