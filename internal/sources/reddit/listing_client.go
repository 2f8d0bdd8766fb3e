package reddit

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/httpx"
)

// listingClient calls the search endpoint directly and decodes the raw
// listing JSON. It serves both the OAuth application-only mode and the
// unauthenticated public mode.
type listingClient struct {
	httpClient *http.Client
	baseURL    string
	suffix     string // ".json" on the public site
}

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Subreddit   string  `json:"subreddit"`
				Author      string  `json:"author"`
				Permalink   string  `json:"permalink"`
				Score       *int    `json:"score"`
				NumComments *int    `json:"num_comments"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// newAppClient authenticates with the client-credentials grant. The token
// is fetched lazily on the first search and refreshed by oauth2.
func newAppClient(baseURL, tokenURL, clientID, clientSecret string, base *http.Client) *listingClient {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	hc := cc.Client(ctx)
	hc.Timeout = base.Timeout

	return &listingClient{httpClient: hc, baseURL: baseURL}
}

func newPublicClient(baseURL string, hc *http.Client) *listingClient {
	return &listingClient{httpClient: hc, baseURL: baseURL, suffix: ".json"}
}

func (lc *listingClient) search(ctx context.Context, req searchRequest) ([]post, error) {
	u, err := url.Parse(lc.baseURL)
	if err != nil {
		return nil, domain.NewSourceError(domain.SourceReddit, domain.ErrConfiguration, err)
	}
	u = u.JoinPath(searchPath(req.Subreddits) + lc.suffix)

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("sort", req.Sort)
	q.Set("t", req.Time)
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("type", "link")
	q.Set("raw_json", "1")
	if len(req.Subreddits) > 0 {
		q.Set("restrict_sr", "1")
	}
	u.RawQuery = q.Encode()

	resp, err := httpx.Get(ctx, lc.httpClient, domain.SourceReddit, u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var listing redditListing
	if err := httpx.DecodeJSON(domain.SourceReddit, resp.Body, &listing); err != nil {
		return nil, err
	}
	if listing.Kind != "Listing" {
		return nil, domain.NewSourceError(domain.SourceReddit, domain.ErrMalformedResponse,
			errUnexpectedKind(listing.Kind))
	}

	posts := make([]post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		d := child.Data
		posts = append(posts, post{
			ID:          d.ID,
			Title:       d.Title,
			Body:        d.Selftext,
			Subreddit:   d.Subreddit,
			Author:      d.Author,
			Permalink:   d.Permalink,
			Score:       d.Score,
			NumComments: d.NumComments,
			Created:     fromUnix(d.CreatedUTC),
		})
	}
	return posts, nil
}

type errUnexpectedKind string

func (e errUnexpectedKind) Error() string {
	return "expected a Listing, got kind " + strconv.Quote(string(e))
}

func fromUnix(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
