package domain

import (
	"context"
	"strings"
	"time"
)

// Known source names
const (
	SourceReddit  = "reddit"
	SourceYouTube = "youtube"
)

// KnownSources lists every source name a config may reference.
var KnownSources = []string{SourceReddit, SourceYouTube}

// IsKnownSource reports whether name has an adapter.
func IsKnownSource(name string) bool {
	for _, s := range KnownSources {
		if s == name {
			return true
		}
	}
	return false
}

// SearchTerm is a keyword or topic used to query sources.
// An empty Sources list means every enabled source receives the term.
type SearchTerm struct {
	Text    string   `json:"term" yaml:"term"`
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// AppliesTo reports whether the term should be sent to the named source.
func (t SearchTerm) AppliesTo(source string) bool {
	if len(t.Sources) == 0 {
		return true
	}
	for _, s := range t.Sources {
		if strings.EqualFold(s, source) {
			return true
		}
	}
	return false
}

// SourceConfig identifies a platform and its parameters for one run.
type SourceConfig struct {
	Name        string
	Enabled     bool
	Limit       int
	Params      map[string]string
	Lists       map[string][]string
	Credentials map[string]string
}

// Param returns a source parameter or def when unset.
func (c SourceConfig) Param(key, def string) string {
	if v, ok := c.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// List returns a list-valued source parameter (e.g. subreddits).
func (c SourceConfig) List(key string) []string {
	return c.Lists[key]
}

// Credential returns a resolved credential value.
func (c SourceConfig) Credential(key string) string {
	return c.Credentials[key]
}

// Engagement holds platform metrics. Nil means the platform did not report it.
type Engagement struct {
	Score    *int64 `json:"score"`
	Views    *int64 `json:"views"`
	Likes    *int64 `json:"likes"`
	Comments *int64 `json:"comments"`
}

// Record is one normalized unit of collected content.
type Record struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Term        string     `json:"term"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	Author      string     `json:"author"`
	Community   string     `json:"community,omitempty"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Engagement  Engagement `json:"engagement"`
}

// ErrorEntry describes one failed (source, term) call.
type ErrorEntry struct {
	Source  string `json:"source"`
	Term    string `json:"term"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SourceSummary is the per-source part of the run metadata.
type SourceSummary struct {
	Count  int          `json:"count"`
	Errors []ErrorEntry `json:"errors"`
}

// CollectionResult is the aggregate of one run.
type CollectionResult struct {
	RunID        string                   `json:"run_id"`
	RunAt        time.Time                `json:"run_at"`
	FinishedAt   time.Time                `json:"finished_at"`
	SearchTerms  []string                 `json:"search_terms"`
	TotalRecords int                      `json:"total_records"`
	Sources      map[string]SourceSummary `json:"sources"`
	Records      []Record                 `json:"records"`
}

// ErrorCount returns the number of failed calls across all sources.
func (r CollectionResult) ErrorCount() int {
	n := 0
	for _, s := range r.Sources {
		n += len(s.Errors)
	}
	return n
}

// Source defines the capability every platform adapter implements.
type Source interface {
	Name() string
	Query(ctx context.Context, term SearchTerm) ([]Record, error)
}

// Int64 returns a pointer to v, for optional engagement metrics.
func Int64(v int64) *int64 {
	return &v
}
