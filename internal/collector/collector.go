package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/logger"
)

// job is one (source, term) call.
type job struct {
	source string
	term   domain.SearchTerm
}

// Collector fans search terms out to source adapters and aggregates the
// outcome of every call into a single CollectionResult.
type Collector struct {
	adapters    map[string]domain.Source
	log         logger.Logger
	concurrency int
	now         func() time.Time
	newID       func() string
}

type Option func(*Collector)

// WithConcurrency sets the number of workers. Values below 2 run sequentially.
func WithConcurrency(n int) Option { return func(c *Collector) { c.concurrency = n } }

func WithClock(now func() time.Time) Option { return func(c *Collector) { c.now = now } }

func WithRunID(newID func() string) Option { return func(c *Collector) { c.newID = newID } }

func New(adapters map[string]domain.Source, log logger.Logger, opts ...Option) *Collector {
	c := &Collector{
		adapters:    adapters,
		log:         log,
		concurrency: 1,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run queries every enabled source with every term that applies to it.
// Failures are recorded per call and never abort the run. Once ctx is
// cancelled no new calls are issued; the remaining pairs are recorded as
// transient network errors.
func (c *Collector) Run(ctx context.Context, terms []domain.SearchTerm, sources []domain.SourceConfig) domain.CollectionResult {
	res := domain.CollectionResult{
		RunID:       c.newID(),
		RunAt:       c.now(),
		SearchTerms: make([]string, 0, len(terms)),
		Sources:     make(map[string]domain.SourceSummary),
		Records:     []domain.Record{},
	}
	for _, t := range terms {
		res.SearchTerms = append(res.SearchTerms, t.Text)
	}

	var jobs []job
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		res.Sources[src.Name] = domain.SourceSummary{Errors: []domain.ErrorEntry{}}
		for _, t := range terms {
			if t.AppliesTo(src.Name) {
				jobs = append(jobs, job{source: src.Name, term: t})
			}
		}
	}

	c.log.Info("collection started",
		logger.String("run_id", res.RunID),
		logger.Int("sources", len(res.Sources)),
		logger.Int("terms", len(terms)),
		logger.Int("calls", len(jobs)),
	)

	var mu sync.Mutex
	settle := func(j job, records []domain.Record, err error) {
		mu.Lock()
		defer mu.Unlock()
		c.aggregate(&res, j, records, err)
	}

	if c.concurrency < 2 {
		for _, j := range jobs {
			records, err := c.call(ctx, j)
			settle(j, records, err)
		}
	} else {
		c.pool(ctx, jobs, settle)
	}

	res.FinishedAt = c.now()
	c.log.Info("collection finished",
		logger.String("run_id", res.RunID),
		logger.Int("records", res.TotalRecords),
		logger.Int("errors", res.ErrorCount()),
		logger.Duration("elapsed", res.FinishedAt.Sub(res.RunAt)),
	)
	return res
}

// pool runs jobs on a bounded set of workers.
func (c *Collector) pool(ctx context.Context, jobs []job, settle func(job, []domain.Record, error)) {
	jobQueue := make(chan job, len(jobs))
	for _, j := range jobs {
		jobQueue <- j
	}
	close(jobQueue)

	var wg sync.WaitGroup
	for i := 0; i < min(c.concurrency, len(jobs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobQueue {
				records, err := c.call(ctx, j)
				settle(j, records, err)
			}
		}()
	}
	wg.Wait()
}

func (c *Collector) call(ctx context.Context, j job) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewSourceError(j.source, domain.ErrTransientNetwork, err)
	}
	adapter, ok := c.adapters[j.source]
	if !ok {
		return nil, domain.ConfigErrorf("sources."+j.source, "no adapter for source %q", j.source)
	}

	start := time.Now()
	records, err := adapter.Query(ctx, j.term)
	if err != nil {
		return nil, err
	}
	c.log.Debug("query done",
		logger.String("source", j.source),
		logger.String("term", j.term.Text),
		logger.Int("records", len(records)),
		logger.Duration("took", time.Since(start)),
	)
	return records, nil
}

// aggregate folds one settled call into res. Callers hold the lock.
func (c *Collector) aggregate(res *domain.CollectionResult, j job, records []domain.Record, err error) {
	summary := res.Sources[j.source]
	if err != nil {
		entry := domain.ErrorEntry{
			Source:  j.source,
			Term:    j.term.Text,
			Kind:    kindOf(err),
			Message: err.Error(),
		}
		summary.Errors = append(summary.Errors, entry)
		res.Sources[j.source] = summary
		c.log.Warn("query failed",
			logger.String("source", j.source),
			logger.String("term", j.term.Text),
			logger.String("kind", entry.Kind),
			logger.Error(err),
		)
		return
	}

	for _, r := range records {
		r.Source = j.source
		r.Term = j.term.Text
		res.Records = append(res.Records, r)
	}
	summary.Count += len(records)
	res.Sources[j.source] = summary
	res.TotalRecords += len(records)
}

// kindOf classifies err, treating bare context errors as transient.
func kindOf(err error) string {
	kind := domain.KindOf(err)
	if kind == domain.KindUnknown &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return domain.KindTransientNetwork
	}
	return kind
}
