package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/qepting91/idea-collector/internal/domain"
)

const (
	filePrefix = "collected_"
	stampFmt   = "20060102T150405Z"
	maxSuffix  = 10000
)

var runFileRe = regexp.MustCompile(`^collected_(\d{8}T\d{6}Z)(?:_(\d+))?\.json$`)

// ErrNoRuns is returned by Latest when the directory holds no run files.
var ErrNoRuns = errors.New("no run files")

// RunFile describes one persisted run on disk.
type RunFile struct {
	Name  string    `json:"name"`
	Path  string    `json:"-"`
	RunAt time.Time `json:"run_at"`
	Seq   int       `json:"seq"`
}

// Writer persists collection results as one JSON document per run.
type Writer struct {
	perm fs.FileMode
}

func NewWriter() *Writer {
	return &Writer{perm: 0o644}
}

// Persist writes res into dir and returns the path of the new file. An
// existing file is never overwritten: a numeric suffix is added instead.
func (w *Writer) Persist(res domain.CollectionResult, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ioError("create output dir", err)
	}

	out := res
	out.Records = SortRecords(res.Records)
	if out.Records == nil {
		out.Records = []domain.Record{}
	}

	f, path, err := w.create(dir, res.RunAt)
	if err != nil {
		return "", err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", ioError("write "+path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", ioError("close "+path, err)
	}
	return path, nil
}

// create opens a fresh run file with O_EXCL, probing suffixes until one is free.
func (w *Writer) create(dir string, runAt time.Time) (*os.File, string, error) {
	stamp := runAt.UTC().Format(stampFmt)
	for seq := 0; seq < maxSuffix; seq++ {
		name := filePrefix + stamp + ".json"
		if seq > 0 {
			name = filePrefix + stamp + "_" + strconv.Itoa(seq) + ".json"
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, w.perm)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", ioError("create "+path, err)
		}
	}
	return nil, "", ioError("create run file", fmt.Errorf("all names for %s are taken", stamp))
}

// SortRecords returns a copy of records ordered by source, then term, then
// newest first. Records without a publish time go last within their group.
func SortRecords(records []domain.Record) []domain.Record {
	out := append([]domain.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Term != b.Term {
			return a.Term < b.Term
		}
		switch {
		case a.PublishedAt == nil:
			return false
		case b.PublishedAt == nil:
			return true
		default:
			return a.PublishedAt.After(*b.PublishedAt)
		}
	})
	return out
}

// Read parses a run file written by Persist.
func Read(path string) (domain.CollectionResult, error) {
	var res domain.CollectionResult
	data, err := os.ReadFile(path)
	if err != nil {
		return res, ioError("read "+path, err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("%w: decode %s: %w", domain.ErrMalformedResponse, path, err)
	}
	return res, nil
}

// List returns the run files in dir, newest first. A missing dir is empty.
func List(dir string) ([]RunFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, ioError("list "+dir, err)
	}

	var runs []RunFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		rf, ok := parseRunFile(e.Name())
		if !ok {
			continue
		}
		rf.Path = filepath.Join(dir, rf.Name)
		runs = append(runs, rf)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].RunAt.Equal(runs[j].RunAt) {
			return runs[i].RunAt.After(runs[j].RunAt)
		}
		return runs[i].Seq > runs[j].Seq
	})
	return runs, nil
}

// Latest returns the newest run file in dir.
func Latest(dir string) (RunFile, error) {
	runs, err := List(dir)
	if err != nil {
		return RunFile{}, err
	}
	if len(runs) == 0 {
		return RunFile{}, fmt.Errorf("%s: %w", dir, ErrNoRuns)
	}
	return runs[0], nil
}

// ReportPath is the HTML report path that sits beside a run file.
func ReportPath(runPath string) string {
	return strings.TrimSuffix(runPath, ".json") + ".html"
}

func parseRunFile(name string) (RunFile, bool) {
	m := runFileRe.FindStringSubmatch(name)
	if m == nil {
		return RunFile{}, false
	}
	at, err := time.Parse(stampFmt, m[1])
	if err != nil {
		return RunFile{}, false
	}
	rf := RunFile{Name: name, RunAt: at}
	if m[2] != "" {
		rf.Seq, _ = strconv.Atoi(m[2])
	}
	return rf, true
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrIO, op, err)
}
