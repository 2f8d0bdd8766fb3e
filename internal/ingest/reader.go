package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Regex for valid subreddit names
var subNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

// LoadKeywords reads search terms from the first column of a CSV file.
// The first row is a header.
func LoadKeywords(path string) ([]string, error) {
	return readColumn(path)
}

// LoadSubreddits reads subreddit names from the first column of a CSV file.
// A leading "r/" is accepted; any other invalid name fails the load.
func LoadSubreddits(path string) ([]string, error) {
	rows, err := readColumn(path)
	if err != nil {
		return nil, err
	}
	subs := make([]string, 0, len(rows))
	for i, sub := range rows {
		sub = strings.TrimPrefix(sub, "r/")
		if !subNameRegex.MatchString(sub) {
			return nil, fmt.Errorf("%s: row %d: invalid subreddit name %q", path, i+2, sub)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// readColumn returns the trimmed, non-empty first-column values after the header.
func readColumn(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Wrap in BOM stripper
	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out []string
	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line++
		if line == 1 {
			continue // Skip header
		}
		if len(rec) == 0 {
			continue
		}
		if v := strings.TrimSpace(rec[0]); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
