package reddit

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/qepting91/idea-collector/internal/domain"
)

// mockClient returns fake posts for dry runs. Output depends only on the
// request and the clock, so repeated runs within the hour are comparable.
type mockClient struct {
	now func() time.Time
}

func newMockClient(now func() time.Time) *mockClient {
	return &mockClient{now: now}
}

func (mc *mockClient) search(ctx context.Context, req searchRequest) ([]post, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewSourceError(domain.SourceReddit, domain.ErrTransientNetwork, err)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(req.Query))
	seed := int(h.Sum32() % 1000)

	subs := req.Subreddits
	if len(subs) == 0 {
		subs = []string{"all"}
	}

	created := mc.now().UTC().Truncate(time.Hour)
	posts := make([]post, 0, req.Limit)
	for i := 0; i < req.Limit; i++ {
		sub := subs[i%len(subs)]
		id := fmt.Sprintf("mock_%d_%d", seed, i)
		score, comments := (seed+i*37)%500, (seed+i*11)%50
		posts = append(posts, post{
			ID:          id,
			Title:       fmt.Sprintf("[%s] Simulated discussion #%d about %s", sub, i, req.Query),
			Body:        "Simulated post body.",
			Subreddit:   sub,
			Author:      "simulated_user",
			Permalink:   fmt.Sprintf("/r/%s/comments/%s/", sub, id),
			Score:       &score,
			NumComments: &comments,
			Created:     created.Add(-time.Duration(i) * time.Hour),
		})
	}
	return posts, nil
}
