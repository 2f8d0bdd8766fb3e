package ingest

import (
	"strconv"
	"time"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/reddit"
)

const (
	defaultLimit    = 20
	maxRedditLimit  = 100
	maxYouTubeLimit = 50
)

var allowed = map[string]map[string][]string{
	domain.SourceReddit: {
		"mode": {reddit.ModeApp, reddit.ModeScript, reddit.ModePublic, reddit.ModeMock},
		"sort": {"relevance", "hot", "top", "new", "comments"},
		"time": {"hour", "day", "week", "month", "year", "all"},
	},
	domain.SourceYouTube: {
		"order":       {"date", "rating", "relevance", "title", "viewCount", "videoCount"},
		"safe_search": {"moderate", "none", "strict"},
	},
}

// validateSource checks the parameters of one source.
func validateSource(src domain.SourceConfig) error {
	field := "sources." + src.Name
	for key, values := range allowed[src.Name] {
		v, ok := src.Params[key]
		if !ok || v == "" {
			continue
		}
		if !contains(values, v) {
			return domain.ConfigErrorf(field+"."+key, "invalid value %q (valid: %v)", v, values)
		}
	}

	if src.Limit < 0 {
		return domain.ConfigErrorf(field+".limit", "must not be negative")
	}
	switch src.Name {
	case domain.SourceReddit:
		if src.Limit > maxRedditLimit {
			return domain.ConfigErrorf(field+".limit", "at most %d", maxRedditLimit)
		}
		if v, ok := src.Params["min_score"]; ok {
			if _, err := strconv.Atoi(v); err != nil {
				return domain.ConfigErrorf(field+".min_score", "not an integer: %q", v)
			}
		}
		for _, sub := range src.List("subreddits") {
			if !subNameRegex.MatchString(sub) {
				return domain.ConfigErrorf(field+".subreddits", "invalid subreddit name %q", sub)
			}
		}
	case domain.SourceYouTube:
		if src.Limit > maxYouTubeLimit {
			return domain.ConfigErrorf(field+".limit", "at most %d", maxYouTubeLimit)
		}
		if v, ok := src.Params["statistics"]; ok {
			if _, err := strconv.ParseBool(v); err != nil {
				return domain.ConfigErrorf(field+".statistics", "not a boolean: %q", v)
			}
		}
		if v, ok := src.Params["published_within"]; ok {
			if d, err := time.ParseDuration(v); err != nil || d <= 0 {
				return domain.ConfigErrorf(field+".published_within", "not a positive duration: %q", v)
			}
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
