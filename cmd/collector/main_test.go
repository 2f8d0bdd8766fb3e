package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/storage"
)

const mockConfig = `
run:
  out_dir: out
  html_report: true
  archive: runs.db
search_terms:
  - remote work
  - crm
sources:
  reddit:
    enabled: true
    mode: mock
    limit: 3
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("COLLECTOR_LOG_LEVEL", "error")
	t.Setenv("COLLECTOR_PRETTY_LOG", "false")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir, path
}

func TestCollectMockRun(t *testing.T) {
	dir, cfg := writeConfig(t, mockConfig)
	envFile := filepath.Join(dir, "missing.env")

	out, err := execute(t, "--config", cfg, "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, "6 records from 2 search terms")
	assert.Contains(t, out, "reddit")

	latest, err := storage.Latest(filepath.Join(dir, "out"))
	require.NoError(t, err)
	res, err := storage.Read(latest.Path)
	require.NoError(t, err)
	assert.Equal(t, 6, res.TotalRecords)
	assert.Equal(t, 6, res.Sources["reddit"].Count)
	assert.Empty(t, res.Sources["reddit"].Errors)
	assert.Equal(t, []string{"remote work", "crm"}, res.SearchTerms)

	_, err = os.Stat(storage.ReportPath(latest.Path))
	assert.NoError(t, err, "html report written beside the run file")

	hist, err := execute(t, "--config", cfg, "--env-file", envFile, "history")
	require.NoError(t, err)
	assert.Contains(t, hist, res.RunID)
	assert.Contains(t, hist, "remote work, crm")
}

func TestCollectOutDirOverride(t *testing.T) {
	dir, cfg := writeConfig(t, mockConfig)
	override := filepath.Join(dir, "elsewhere")

	_, err := execute(t, "--config", cfg, "--env-file", "", "--out-dir", override)
	require.NoError(t, err)

	runs, err := storage.List(override)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestCollectConfigError(t *testing.T) {
	_, cfg := writeConfig(t, `
search_terms: [x]
sources:
  myspace:
    enabled: true
`)
	_, err := execute(t, "--config", cfg, "--env-file", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, 2, exitCode(err))
}

func TestCollectMissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yml"), "--env-file", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCollectUnwritableOutput(t *testing.T) {
	dir, cfg := writeConfig(t, mockConfig)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := execute(t, "--config", cfg, "--env-file", "", "--out-dir", filepath.Join(blocker, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.Equal(t, 3, exitCode(err))
}

func TestHistoryWithoutArchive(t *testing.T) {
	_, cfg := writeConfig(t, "search_terms: [x]\n")
	_, err := execute(t, "--config", cfg, "--env-file", "", "history")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "collector dev")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 2, exitCode(domain.ConfigErrorf("x", "bad")))
}
