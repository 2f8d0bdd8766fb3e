package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/qepting91/idea-collector/internal/archive"
	"github.com/qepting91/idea-collector/internal/collector"
	"github.com/qepting91/idea-collector/internal/dashboard"
	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/ingest"
	"github.com/qepting91/idea-collector/internal/logger"
	"github.com/qepting91/idea-collector/internal/sources"
	"github.com/qepting91/idea-collector/internal/storage"
)

// collect runs the whole pipeline once and returns the path of the run file.
// Per-call failures are part of the result; only configuration and output
// failures are returned.
func (a *app) collect(ctx context.Context, out io.Writer) (string, error) {
	provider := ingest.NewProvider(a.cfg.ConfigFile)
	terms, srcs, err := provider.Load()
	if err != nil {
		return "", err
	}
	run := provider.Run()
	if a.outDir != "" {
		run.OutDir = a.outDir
	}

	adapters, err := sources.Build(srcs)
	if err != nil {
		return "", err
	}

	c := collector.New(adapters, a.log, collector.WithConcurrency(run.Concurrency))
	res := c.Run(ctx, terms, srcs)
	if ctx.Err() != nil {
		a.log.Warn("collection interrupted, persisting partial result")
	}

	path, err := storage.NewWriter().Persist(res, run.OutDir)
	if err != nil {
		return "", fmt.Errorf("persisting run: %w", err)
	}
	a.log.Info("run persisted", logger.String("path", path), logger.Int("records", res.TotalRecords))

	if run.HTMLReport {
		if err := writeReport(storage.ReportPath(path), res); err != nil {
			a.log.Error("report not written", logger.Error(err))
		}
	}
	if run.Archive != "" {
		if err := archiveRun(context.WithoutCancel(ctx), run.Archive, res, path); err != nil {
			a.log.Error("run not archived", logger.String("archive", run.Archive), logger.Error(err))
		}
	}

	printSummary(out, res, path)
	return path, nil
}

func writeReport(path string, res domain.CollectionResult) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return dashboard.RenderReport(f, res)
}

func archiveRun(ctx context.Context, dbPath string, res domain.CollectionResult, file string) error {
	db, err := archive.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveRun(ctx, res, file)
}

func printSummary(w io.Writer, res domain.CollectionResult, path string) {
	names := make([]string, 0, len(res.Sources))
	for name := range res.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Run %s: %d records from %d search terms\n", res.RunID, res.TotalRecords, len(res.SearchTerms))
	for _, name := range names {
		s := res.Sources[name]
		fmt.Fprintf(w, "  %-8s %4d records  %d errors\n", name, s.Count, len(s.Errors))
		for _, e := range s.Errors {
			fmt.Fprintf(w, "    [%s] %q: %s\n", e.Kind, e.Term, e.Message)
		}
	}
	fmt.Fprintf(w, "Saved to %s\n", path)
}
