package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/idea-collector/internal/domain"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, vars := range credentialEnv {
		for _, env := range vars {
			t.Setenv(env, "")
		}
	}
}

func TestProviderLoad(t *testing.T) {
	clearCredentials(t)
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")

	dir := t.TempDir()
	writeFile(t, dir, "keywords.csv", "keyword\nside hustle\nRemote Work\n")
	path := writeFile(t, dir, "config.yml", `
run:
  out_dir: out
  max_items_per_source: 15
  html_report: true
  archive: history.db
search_terms:
  - remote work
  - term: invoice software
    sources: [reddit]
search_terms_file: keywords.csv
sources:
  reddit:
    enabled: true
    subreddits: [smallbusiness, productivity]
    sort: top
    time: month
    min_score: 5
  youtube:
    enabled: false
    search_terms: [notion templates]
`)

	p := NewProvider(path)
	terms, sources, err := p.Load()
	require.NoError(t, err)

	assert.Equal(t, []domain.SearchTerm{
		{Text: "remote work"},
		{Text: "invoice software", Sources: []string{"reddit"}},
		{Text: "side hustle"},
		{Text: "notion templates", Sources: []string{"youtube"}},
	}, terms)

	require.Len(t, sources, 2)
	reddit := sources[0]
	assert.Equal(t, "reddit", reddit.Name)
	assert.True(t, reddit.Enabled)
	assert.Equal(t, 15, reddit.Limit)
	assert.Equal(t, []string{"smallbusiness", "productivity"}, reddit.List("subreddits"))
	assert.Equal(t, "top", reddit.Param("sort", "relevance"))
	assert.Equal(t, "5", reddit.Param("min_score", "0"))
	assert.Equal(t, "id", reddit.Credential("client_id"))

	youtube := sources[1]
	assert.Equal(t, "youtube", youtube.Name)
	assert.False(t, youtube.Enabled)

	run := p.Run()
	assert.Equal(t, filepath.Join(dir, "out"), run.OutDir)
	assert.Equal(t, filepath.Join(dir, "history.db"), run.Archive)
	assert.True(t, run.HTMLReport)
	assert.Equal(t, 1, run.Concurrency)
}

func TestProviderLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "malformed yaml",
			yaml:    "sources: [",
			wantMsg: "parsing",
		},
		{
			name:    "unknown source",
			yaml:    "search_terms: [a]\nsources:\n  twitter:\n    enabled: true\n",
			wantMsg: "unknown source",
		},
		{
			name:    "term restricted to unknown source",
			yaml:    "search_terms:\n  - term: a\n    sources: [tiktok]\nsources:\n  reddit:\n    enabled: true\n    mode: public\n",
			wantMsg: "unknown source",
		},
		{
			name:    "empty term",
			yaml:    "search_terms: ['  ']\nsources:\n  reddit:\n    enabled: true\n    mode: public\n",
			wantMsg: "empty term",
		},
		{
			name:    "missing youtube key",
			yaml:    "search_terms: [a]\nsources:\n  youtube:\n    enabled: true\n",
			wantMsg: "YOUTUBE_API_KEY",
		},
		{
			name:    "missing script credentials",
			yaml:    "search_terms: [a]\nsources:\n  reddit:\n    enabled: true\n    mode: script\n",
			env:     map[string]string{"REDDIT_CLIENT_ID": "id", "REDDIT_CLIENT_SECRET": "s"},
			wantMsg: "username is required",
		},
		{
			name:    "credential override names the variable",
			yaml:    "search_terms: [a]\nsources:\n  youtube:\n    enabled: true\n    credentials:\n      api_key: MY_YT_KEY\n",
			wantMsg: "MY_YT_KEY",
		},
		{
			name:    "invalid sort",
			yaml:    "search_terms: [a]\nsources:\n  reddit:\n    enabled: true\n    mode: public\n    sort: best\n",
			wantMsg: "invalid value",
		},
		{
			name:    "invalid subreddit",
			yaml:    "search_terms: [a]\nsources:\n  reddit:\n    enabled: true\n    mode: public\n    subreddits: [no spaces]\n",
			wantMsg: "invalid subreddit",
		},
		{
			name:    "youtube limit too large",
			yaml:    "search_terms: [a]\nsources:\n  youtube:\n    enabled: true\n    limit: 200\n",
			env:     map[string]string{"YOUTUBE_API_KEY": "k"},
			wantMsg: "at most 50",
		},
		{
			name: "enabled source excluded by every term",
			yaml: "sources:\n  reddit:\n    enabled: true\n    mode: mock\n    subreddits: [smallbusiness]\n" +
				"  youtube:\n    enabled: true\n    search_terms: [remote work]\n",
			env:     map[string]string{"YOUTUBE_API_KEY": "k"},
			wantMsg: "sources.reddit: enabled but no search term applies",
		},
		{
			name:    "no terms with enabled source",
			yaml:    "sources:\n  reddit:\n    enabled: true\n    mode: mock\n",
			wantMsg: "no search terms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCredentials(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, t.TempDir(), "config.yml", tt.yaml)

			_, _, err := NewProvider(path).Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestProviderLoadMissingFile(t *testing.T) {
	_, _, err := NewProvider(filepath.Join(t.TempDir(), "config.yml")).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "config not found")
}

func TestProviderDisabledSourceNeedsNoCredentials(t *testing.T) {
	clearCredentials(t)
	path := writeFile(t, t.TempDir(), "config.yml", "search_terms: [a]\nsources:\n  reddit:\n    enabled: false\n  youtube:\n    enabled: false\n")

	terms, sources, err := NewProvider(path).Load()
	require.NoError(t, err)
	assert.Len(t, terms, 1)
	assert.Len(t, sources, 2)
}

func TestProviderZeroSources(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "search_terms: [a]\n")

	terms, sources, err := NewProvider(path).Load()
	require.NoError(t, err)
	assert.Len(t, terms, 1)
	assert.Empty(t, sources)
}

func TestMergeRestrictions(t *testing.T) {
	assert.Nil(t, mergeRestrictions(nil, []string{"reddit"}))
	assert.Nil(t, mergeRestrictions([]string{"reddit"}, nil))
	assert.Equal(t, []string{"reddit", "youtube"}, mergeRestrictions([]string{"reddit"}, []string{"youtube", "reddit"}))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "COLLECTOR_TEST_DOTENV=from-file\n")
	t.Cleanup(func() { _ = os.Unsetenv("COLLECTOR_TEST_DOTENV") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("COLLECTOR_TEST_DOTENV"))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}

func TestProviderLoadRunIgnoresSources(t *testing.T) {
	clearCredentials(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
run:
  archive: runs.db
  concurrency: 3
sources:
  youtube:
    enabled: true
`)

	run, err := NewProvider(path).LoadRun()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), run.OutDir)
	assert.Equal(t, filepath.Join(dir, "runs.db"), run.Archive)
	assert.Equal(t, 3, run.Concurrency)

	_, _, err = NewProvider(path).Load()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
