// Package youtube searches videos through the YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/httpx"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	watchURL       = "https://www.youtube.com/watch?v="
	defaultLimit   = 20
	maxLimit       = 50 // search.list maxResults ceiling
	defaultOrder   = "relevance"
	defaultPacing  = 100 * time.Millisecond
)

// --- YouTube Data API v3 types ---

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		PublishedAt  string `json:"publishedAt"`
		ChannelID    string `json:"channelId"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

type videosResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount    *string `json:"viewCount"`
			LikeCount    *string `json:"likeCount"`
			CommentCount *string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Adapter is the YouTube source.
type Adapter struct {
	apiKey          string
	baseURL         string
	httpClient      *http.Client
	limiter         *rate.Limiter
	limit           int
	order           string
	region          string
	language        string
	safeSearch      string
	publishedWithin time.Duration
	statistics      bool
	now             func() time.Time
}

// Option customizes an Adapter.
type Option func(*Adapter)

func WithBaseURL(u string) Option          { return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") } }
func WithHTTPClient(c *http.Client) Option { return func(a *Adapter) { a.httpClient = c } }
func WithLimiter(l *rate.Limiter) Option   { return func(a *Adapter) { a.limiter = l } }
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

func New(cfg domain.SourceConfig, opts ...Option) (*Adapter, error) {
	a := &Adapter{
		apiKey:     cfg.Credential("api_key"),
		baseURL:    defaultBaseURL,
		limit:      cfg.Limit,
		order:      cfg.Param("order", defaultOrder),
		region:     cfg.Param("region", ""),
		language:   cfg.Param("language", ""),
		safeSearch: cfg.Param("safe_search", ""),
		statistics: true,
		now:        time.Now,
	}
	if a.apiKey == "" {
		return nil, domain.ConfigErrorf("sources.youtube.credentials", "api_key is required")
	}
	if a.limit <= 0 {
		a.limit = defaultLimit
	}
	a.limit = min(a.limit, maxLimit)

	if v := cfg.Param("statistics", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, domain.ConfigErrorf("sources.youtube.statistics", "not a boolean: %q", v)
		}
		a.statistics = b
	}
	if v := cfg.Param("published_within", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, domain.ConfigErrorf("sources.youtube.published_within", "%v", err)
		}
		a.publishedWithin = d
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.httpClient == nil {
		a.httpClient = httpx.NewClient(httpx.DefaultUserAgent)
	}
	if a.limiter == nil {
		a.limiter = rate.NewLimiter(rate.Every(defaultPacing), 1)
	}
	return a, nil
}

func (a *Adapter) Name() string { return domain.SourceYouTube }

// Query runs one search.list call and, when statistics are enabled, one
// videos.list call for the returned IDs.
func (a *Adapter) Query(ctx context.Context, term domain.SearchTerm) ([]domain.Record, error) {
	q := strings.TrimSpace(term.Text)
	if q == "" {
		return nil, domain.ConfigErrorf("term", "empty search term")
	}

	items, err := a.search(ctx, q)
	if err != nil {
		return nil, err
	}

	fetchedAt := a.now().UTC()
	seen := make(map[string]bool, len(items))
	records := make([]domain.Record, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id := item.ID.VideoID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		records = append(records, item.record(q, fetchedAt))
	}

	if a.statistics && len(ids) > 0 {
		stats, err := a.videoStatistics(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range records {
			if e, ok := stats[records[i].ID]; ok {
				records[i].Engagement = e
			}
		}
	}
	return records, nil
}

func (a *Adapter) search(ctx context.Context, q string) ([]searchItem, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", q)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(a.limit))
	params.Set("order", a.order)
	if a.region != "" {
		params.Set("regionCode", a.region)
	}
	if a.language != "" {
		params.Set("relevanceLanguage", a.language)
	}
	if a.safeSearch != "" {
		params.Set("safeSearch", a.safeSearch)
	}
	if a.publishedWithin > 0 {
		params.Set("publishedAfter", a.now().Add(-a.publishedWithin).UTC().Format(time.RFC3339))
	}

	var result searchResponse
	if err := a.get(ctx, "/search", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// videoStatistics fetches view/like/comment counts. Counts the API omits
// (hidden likes, disabled comments) stay nil.
func (a *Adapter) videoStatistics(ctx context.Context, ids []string) (map[string]domain.Engagement, error) {
	params := url.Values{}
	params.Set("part", "statistics")
	params.Set("id", strings.Join(ids, ","))
	params.Set("maxResults", strconv.Itoa(len(ids)))

	var result videosResponse
	if err := a.get(ctx, "/videos", params, &result); err != nil {
		return nil, err
	}

	stats := make(map[string]domain.Engagement, len(result.Items))
	for _, v := range result.Items {
		var e domain.Engagement
		var err error
		if e.Views, err = parseCount(v.Statistics.ViewCount); err != nil {
			return nil, err
		}
		if e.Likes, err = parseCount(v.Statistics.LikeCount); err != nil {
			return nil, err
		}
		if e.Comments, err = parseCount(v.Statistics.CommentCount); err != nil {
			return nil, err
		}
		stats[v.ID] = e
	}
	return stats, nil
}

func (a *Adapter) get(ctx context.Context, endpoint string, params url.Values, v any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return domain.NewSourceError(domain.SourceYouTube, domain.ErrTransientNetwork, err)
	}
	params.Set("key", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return domain.NewSourceError(domain.SourceYouTube, domain.ErrConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return httpx.Transport(domain.SourceYouTube, redactKey(err, a.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return httpx.DecodeJSON(domain.SourceYouTube, resp.Body, v)
}

func (item searchItem) record(term string, fetchedAt time.Time) domain.Record {
	var published *time.Time
	if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		t = t.UTC()
		published = &t
	}
	return domain.Record{
		ID:          item.ID.VideoID,
		Source:      domain.SourceYouTube,
		Term:        term,
		Title:       html.UnescapeString(item.Snippet.Title),
		Text:        html.UnescapeString(item.Snippet.Description),
		Author:      html.UnescapeString(item.Snippet.ChannelTitle),
		Community:   item.Snippet.ChannelID,
		URL:         watchURL + item.ID.VideoID,
		PublishedAt: published,
		FetchedAt:   fetchedAt,
	}
}

func parseCount(s *string) (*int64, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(*s, 10, 64)
	if err != nil {
		return nil, domain.NewSourceError(domain.SourceYouTube, domain.ErrMalformedResponse,
			fmt.Errorf("statistics count %q: %w", *s, err))
	}
	return &n, nil
}
