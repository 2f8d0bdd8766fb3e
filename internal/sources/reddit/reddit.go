// Package reddit searches Reddit posts for a term and maps them to records.
package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/httpx"
)

// Access modes, matching the "mode" source parameter.
const (
	ModeApp    = "app"
	ModeScript = "script"
	ModePublic = "public"
	ModeMock   = "mock"
)

const (
	defaultBaseURL      = "https://oauth.reddit.com/"
	defaultPublicURL    = "https://www.reddit.com/"
	defaultTokenURL     = "https://www.reddit.com/api/v1/access_token"
	permalinkBase       = "https://www.reddit.com"
	deletedAuthor       = "[deleted]"
	defaultSort         = "relevance"
	defaultTime         = "all"
	defaultLimit        = 25
	authenticatedPacing = time.Second
	publicPacing        = 2 * time.Second
)

// searchRequest is one search call against a set of subreddits.
type searchRequest struct {
	Query      string
	Subreddits []string
	Sort       string
	Time       string
	Limit      int
}

// post is the subset of a Reddit submission the collector keeps.
type post struct {
	ID          string
	Title       string
	Body        string
	Subreddit   string
	Author      string
	Permalink   string
	Score       *int // nil when the listing omits it
	NumComments *int
	Created     time.Time
}

// searcher is implemented by each access mode.
type searcher interface {
	search(ctx context.Context, req searchRequest) ([]post, error)
}

// Adapter is the Reddit source.
type Adapter struct {
	client     searcher
	limiter    *rate.Limiter
	subreddits []string
	sort       string
	time       string
	limit      int
	minScore   int
	now        func() time.Time
}

type options struct {
	baseURL    string
	tokenURL   string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// Option customizes an Adapter; used to point it at test servers.
type Option func(*options)

func WithBaseURL(u string) Option          { return func(o *options) { o.baseURL = u } }
func WithTokenURL(u string) Option         { return func(o *options) { o.tokenURL = u } }
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }
func WithLimiter(l *rate.Limiter) Option   { return func(o *options) { o.limiter = l } }
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds the adapter for the configured mode.
func New(cfg domain.SourceConfig, opts ...Option) (*Adapter, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	userAgent := cfg.Credential("user_agent")
	if userAgent == "" {
		userAgent = cfg.Param("user_agent", httpx.DefaultUserAgent)
	}
	if o.httpClient == nil {
		o.httpClient = httpx.NewClient(userAgent)
	}

	a := &Adapter{
		subreddits: cfg.List("subreddits"),
		sort:       cfg.Param("sort", defaultSort),
		time:       cfg.Param("time", defaultTime),
		limit:      cfg.Limit,
		now:        o.now,
	}
	if a.limit <= 0 {
		a.limit = defaultLimit
	}
	if v := cfg.Param("min_score", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, domain.ConfigErrorf("sources.reddit.min_score", "not an integer: %q", v)
		}
		a.minScore = n
	}

	pacing := authenticatedPacing
	switch mode := cfg.Param("mode", ModeApp); mode {
	case ModeApp:
		a.client = newAppClient(orDefault(o.baseURL, defaultBaseURL), orDefault(o.tokenURL, defaultTokenURL),
			cfg.Credential("client_id"), cfg.Credential("client_secret"), o.httpClient)
	case ModeScript:
		sc, err := newScriptClient(cfg, userAgent, o)
		if err != nil {
			return nil, err
		}
		a.client = sc
	case ModePublic:
		a.client = newPublicClient(orDefault(o.baseURL, defaultPublicURL), o.httpClient)
		pacing = publicPacing
	case ModeMock:
		a.client = newMockClient(o.now)
		pacing = 0
	default:
		return nil, domain.ConfigErrorf("sources.reddit.mode", "unknown mode %q", mode)
	}

	a.limiter = o.limiter
	if a.limiter == nil {
		if pacing == 0 {
			a.limiter = rate.NewLimiter(rate.Inf, 1)
		} else {
			a.limiter = rate.NewLimiter(rate.Every(pacing), 1)
		}
	}
	return a, nil
}

func (a *Adapter) Name() string { return domain.SourceReddit }

// Query searches the configured subreddits (r/all when none) for term.
func (a *Adapter) Query(ctx context.Context, term domain.SearchTerm) ([]domain.Record, error) {
	q := strings.TrimSpace(term.Text)
	if q == "" {
		return nil, domain.ConfigErrorf("term", "empty search term")
	}

	// Wait for token
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, domain.NewSourceError(domain.SourceReddit, domain.ErrTransientNetwork, err)
	}

	posts, err := a.client.search(ctx, searchRequest{
		Query:      q,
		Subreddits: a.subreddits,
		Sort:       a.sort,
		Time:       a.time,
		Limit:      a.limit,
	})
	if err != nil {
		return nil, err
	}

	fetchedAt := a.now().UTC()
	seen := make(map[string]bool, len(posts))
	records := make([]domain.Record, 0, len(posts))
	for _, p := range posts {
		if p.ID == "" || p.Title == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if !a.passesMinScore(p.Score) {
			continue
		}
		records = append(records, p.record(q, fetchedAt))
	}
	return records, nil
}

func (p post) record(term string, fetchedAt time.Time) domain.Record {
	author := p.Author
	if author == "" {
		author = deletedAuthor
	}
	var published *time.Time
	if !p.Created.IsZero() {
		t := p.Created.UTC()
		published = &t
	}
	return domain.Record{
		ID:          p.ID,
		Source:      domain.SourceReddit,
		Term:        term,
		Title:       p.Title,
		Text:        p.Body,
		Author:      author,
		Community:   p.Subreddit,
		URL:         permalinkURL(p.Permalink, p.ID),
		PublishedAt: published,
		FetchedAt:   fetchedAt,
		Engagement: domain.Engagement{
			Score:    count(p.Score),
			Comments: count(p.NumComments),
		},
	}
}

// passesMinScore reports whether a post clears min_score. A post without a
// score only passes when no positive threshold is set.
func (a *Adapter) passesMinScore(score *int) bool {
	if score == nil {
		return a.minScore <= 0
	}
	return *score >= a.minScore
}

func count(n *int) *int64 {
	if n == nil {
		return nil
	}
	return domain.Int64(int64(*n))
}

func permalinkURL(permalink, id string) string {
	switch {
	case strings.HasPrefix(permalink, "http"):
		return permalink
	case permalink != "":
		return permalinkBase + permalink
	default:
		return fmt.Sprintf("%s/comments/%s", permalinkBase, id)
	}
}

// searchPath returns the search path relative to the API root.
func searchPath(subreddits []string) string {
	if len(subreddits) == 0 {
		return "search"
	}
	return "r/" + strings.Join(subreddits, "+") + "/search"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
