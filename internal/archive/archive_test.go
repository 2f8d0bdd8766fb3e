package archive

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/idea-collector/internal/domain"
)

func openTemp(t *testing.T) (*Archive, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, path
}

func result(id string, at time.Time) domain.CollectionResult {
	pub := at.Add(-time.Hour)
	return domain.CollectionResult{
		RunID:        id,
		RunAt:        at,
		FinishedAt:   at.Add(2 * time.Second),
		SearchTerms:  []string{"remote work", "crm"},
		TotalRecords: 2,
		Sources: map[string]domain.SourceSummary{
			"reddit":  {Count: 2, Errors: []domain.ErrorEntry{}},
			"youtube": {Count: 0, Errors: []domain.ErrorEntry{{Source: "youtube", Term: "crm", Kind: "rate_limit", Message: "quota"}}},
		},
		Records: []domain.Record{
			{ID: "p1", Source: "reddit", Term: "remote work", Title: "one", PublishedAt: &pub, FetchedAt: at,
				Engagement: domain.Engagement{Score: domain.Int64(12), Comments: domain.Int64(3)}},
			{ID: "p2", Source: "reddit", Term: "crm", Title: "two", FetchedAt: at},
		},
	}
}

func TestSaveAndListRuns(t *testing.T) {
	a, _ := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	require.NoError(t, a.SaveRun(ctx, result("older", base), "data/collected_20261018T080000Z.json"))
	require.NoError(t, a.SaveRun(ctx, result("newer", base.Add(time.Hour)), "data/collected_20261018T090000Z.json"))

	runs, err := a.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].RunID)
	assert.Equal(t, "older", runs[1].RunID)

	r := runs[1]
	assert.True(t, base.Equal(r.RunAt))
	assert.True(t, base.Add(2*time.Second).Equal(r.FinishedAt))
	assert.Equal(t, []string{"remote work", "crm"}, r.SearchTerms)
	assert.Equal(t, 2, r.TotalRecords)
	assert.Equal(t, 1, r.ErrorCount)
	assert.Equal(t, "data/collected_20261018T080000Z.json", r.File)

	limited, err := a.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "newer", limited[0].RunID)

	n, err := a.CountRecords(ctx, "older")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSaveRunStoresNullEngagement(t *testing.T) {
	a, _ := openTemp(t)
	ctx := context.Background()
	require.NoError(t, a.SaveRun(ctx, result("r1", time.Now()), ""))

	var score, views sql.NullInt64
	var published sql.NullString
	err := a.db.QueryRowContext(ctx,
		`SELECT score, views, published_at FROM records WHERE run_id=? AND id=?`, "r1", "p1").
		Scan(&score, &views, &published)
	require.NoError(t, err)
	assert.Equal(t, sql.NullInt64{Int64: 12, Valid: true}, score)
	assert.False(t, views.Valid)
	assert.True(t, published.Valid)

	err = a.db.QueryRowContext(ctx,
		`SELECT published_at FROM records WHERE run_id=? AND id=?`, "r1", "p2").Scan(&published)
	require.NoError(t, err)
	assert.False(t, published.Valid)
}

func TestSaveRunDuplicateRollsBack(t *testing.T) {
	a, _ := openTemp(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	require.NoError(t, a.SaveRun(ctx, result("dup", at), ""))
	require.Error(t, a.SaveRun(ctx, result("dup", at), ""))

	n, err := a.CountRecords(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var sources int
	require.NoError(t, a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_sources WHERE run_id=?`, "dup").Scan(&sources))
	assert.Equal(t, 2, sources)
}

func TestOpenReopensExisting(t *testing.T) {
	a, path := openTemp(t)
	ctx := context.Background()
	require.NoError(t, a.SaveRun(ctx, result("kept", time.Now()), ""))
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()
	runs, err := b.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "kept", runs[0].RunID)
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	assert.ErrorIs(t, err, domain.ErrIO)
}
