package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/loganintech/go-reddit/v2/reddit"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/httpx"
)

// scriptClient uses the go-reddit client with a script app's password grant.
type scriptClient struct {
	client *reddit.Client
}

func newScriptClient(cfg domain.SourceConfig, userAgent string, o options) (*scriptClient, error) {
	creds := reddit.Credentials{
		ID:       cfg.Credential("client_id"),
		Secret:   cfg.Credential("client_secret"),
		Username: cfg.Credential("username"),
		Password: cfg.Credential("password"),
	}

	opts := []reddit.Opt{reddit.WithUserAgent(userAgent)}
	if o.baseURL != "" {
		opts = append(opts, reddit.WithBaseURL(o.baseURL))
	}
	if o.tokenURL != "" {
		opts = append(opts, reddit.WithTokenURL(o.tokenURL))
	}

	client, err := reddit.NewClient(creds, opts...)
	if err != nil {
		return nil, domain.ConfigErrorf("sources.reddit", "building client: %v", err)
	}
	return &scriptClient{client: client}, nil
}

func (sc *scriptClient) search(ctx context.Context, req searchRequest) ([]post, error) {
	posts, _, err := sc.client.Subreddit.SearchPosts(ctx, req.Query, strings.Join(req.Subreddits, "+"),
		&reddit.ListPostSearchOptions{
			ListPostOptions: reddit.ListPostOptions{
				ListOptions: reddit.ListOptions{Limit: req.Limit},
				Time:        req.Time,
			},
			Sort: req.Sort,
		})
	if err != nil {
		return nil, classifyClientError(err)
	}

	result := make([]post, 0, len(posts))
	for _, p := range posts {
		if p == nil {
			continue
		}
		score, comments := p.Score, p.NumberOfComments
		np := post{
			ID:          p.ID,
			Title:       p.Title,
			Body:        p.Body,
			Subreddit:   p.SubredditName,
			Author:      p.Author,
			Permalink:   p.Permalink,
			Score:       &score,
			NumComments: &comments,
		}
		if p.Created != nil {
			np.Created = p.Created.Time.UTC()
		}
		result = append(result, np)
	}
	return result, nil
}

// classifyClientError maps go-reddit errors onto the error taxonomy.
func classifyClientError(err error) error {
	var (
		rateErr   *reddit.RateLimitError
		jsonErr   *reddit.JSONErrorResponse
		errResp   *reddit.ErrorResponse
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &rateErr):
		return domain.NewSourceError(domain.SourceReddit, domain.ErrRateLimit, err)
	case errors.As(err, &jsonErr):
		return domain.NewSourceError(domain.SourceReddit, jsonErrorKind(jsonErr),
			fmt.Errorf("authenticated api error: %w", err))
	case errors.As(err, &errResp) && errResp.Response != nil:
		return domain.NewSourceError(domain.SourceReddit, httpx.StatusKind(errResp.Response.StatusCode),
			fmt.Errorf("authenticated api error: %w", err))
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return domain.NewSourceError(domain.SourceReddit, domain.ErrMalformedResponse, err)
	}
	return httpx.Transport(domain.SourceReddit, err)
}

// jsonErrorKind classifies a {"json":{"errors":[...]}} body. Reddit labels
// throttling RATELIMIT regardless of the status code.
func jsonErrorKind(e *reddit.JSONErrorResponse) error {
	for _, apiErr := range e.JSON.Errors {
		if strings.EqualFold(apiErr.Label, "RATELIMIT") {
			return domain.ErrRateLimit
		}
	}
	if e.Response != nil {
		return httpx.StatusKind(e.Response.StatusCode)
	}
	return domain.ErrMalformedResponse
}
