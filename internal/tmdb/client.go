// Package tmdb is a minimal client for the parts of The Movie Database API used by search:
// title search and watch-provider lookup.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fastflix/internal/model"
)

// ErrTimeout wraps model.ErrUpstreamTimeout so callers can match either.
var ErrTimeout = fmt.Errorf("tmdb: %w", model.ErrUpstreamTimeout)

const defaultCountry = "US"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client. apiKey may be a v3 key or a v4 read access token (JWT), which is
// sent as a bearer token.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
}

type providerEntry struct {
	ProviderID   int64  `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
}

// Lookup finds the best TMDB match for s and attaches the flat-rate streaming providers for country.
func (c *Client) Lookup(ctx context.Context, s model.Suggestion, language, country string) (*model.Title, error) {
	if country == "" {
		country = defaultCountry
	}
	mediaType := s.Type
	if mediaType != model.MediaTypeTV {
		mediaType = model.MediaTypeMovie
	}

	params := url.Values{}
	params.Set("query", s.Title)
	params.Set("include_adult", "false")
	if language != "" {
		params.Set("language", language)
	}
	if s.Year > 0 {
		if mediaType == model.MediaTypeTV {
			params.Set("first_air_date_year", strconv.Itoa(s.Year))
		} else {
			params.Set("year", strconv.Itoa(s.Year))
		}
	}

	var search struct {
		Results []searchResult `json:"results"`
	}
	if err := c.get(ctx, "/search/"+mediaType, params, &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, model.ErrTitleNotFound
	}
	best := search.Results[0]

	title := &model.Title{
		TMDBID:       best.ID,
		MediaType:    mediaType,
		Title:        firstNonEmpty(best.Title, best.Name),
		Overview:     best.Overview,
		PosterPath:   best.PosterPath,
		BackdropPath: best.BackdropPath,
		ReleaseDate:  firstNonEmpty(best.ReleaseDate, best.FirstAirDate),
		VoteAverage:  best.VoteAverage,
		Providers:    []model.StreamingProvider{},
	}

	providers, err := c.WatchProviders(ctx, mediaType, best.ID, country)
	if err != nil {
		// Metadata without providers is still useful, unless we ran out of time.
		if errors.Is(err, model.ErrUpstreamTimeout) {
			return nil, err
		}
		return title, nil
	}
	title.Providers = providers
	return title, nil
}

// WatchProviders returns the subscription ("flatrate") providers for a title in country.
func (c *Client) WatchProviders(ctx context.Context, mediaType string, id int64, country string) ([]model.StreamingProvider, error) {
	var resp struct {
		Results map[string]struct {
			Flatrate []providerEntry `json:"flatrate"`
		} `json:"results"`
	}
	path := fmt.Sprintf("/%s/%d/watch/providers", mediaType, id)
	if err := c.get(ctx, path, url.Values{}, &resp); err != nil {
		return nil, err
	}

	out := []model.StreamingProvider{}
	for _, p := range resp.Results[strings.ToUpper(country)].Flatrate {
		out = append(out, model.StreamingProvider{ID: p.ProviderID, Name: p.ProviderName, LogoPath: p.LogoPath})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	isBearer := strings.Count(c.apiKey, ".") == 2
	if !isBearer {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if isBearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return ErrTimeout
		}
		return fmt.Errorf("tmdb: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.ErrTitleNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("tmdb: %s: HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return ErrTimeout
		}
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
