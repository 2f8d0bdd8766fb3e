package ingest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qepting91/idea-collector/internal/domain"
)

// RunSettings are the run-level options of config.yml.
type RunSettings struct {
	OutDir      string // absolute or relative to the working directory
	HTMLReport  bool
	Archive     string // empty = archive disabled
	Concurrency int
}

// Provider loads search terms and source configs from a YAML file.
type Provider struct {
	path string
	run  RunSettings
}

func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Run returns the run settings parsed by the last successful Load.
func (p *Provider) Run() RunSettings {
	return p.run
}

// Load reads, validates and resolves the configuration. Every failure is a
// *domain.ConfigError.
func (p *Provider) Load() ([]domain.SearchTerm, []domain.SourceConfig, error) {
	fc, err := p.read()
	if err != nil {
		return nil, nil, err
	}

	baseDir := filepath.Dir(p.path)
	sources, err := buildSources(fc, baseDir)
	if err != nil {
		return nil, nil, err
	}

	terms, err := buildTerms(fc, baseDir)
	if err != nil {
		return nil, nil, err
	}
	if len(terms) == 0 && hasEnabled(sources) {
		return nil, nil, domain.ConfigErrorf("search_terms", "no search terms configured")
	}
	if err := checkCoverage(terms, sources); err != nil {
		return nil, nil, err
	}

	p.run = runSettings(fc.Run, baseDir)
	return terms, sources, nil
}

// LoadRun parses only the run section, without validating sources or
// resolving credentials. Commands that browse existing output use it.
func (p *Provider) LoadRun() (RunSettings, error) {
	fc, err := p.read()
	if err != nil {
		return RunSettings{}, err
	}
	p.run = runSettings(fc.Run, filepath.Dir(p.path))
	return p.run, nil
}

func (p *Provider) read() (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fc, domain.ConfigErrorf("", "config not found: %s", p.path)
		}
		return fc, domain.ConfigErrorf("", "reading %s: %v", p.path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, domain.ConfigErrorf("", "parsing %s: %v", p.path, err)
	}
	return fc, nil
}

func runSettings(rc runConfig, baseDir string) RunSettings {
	rs := RunSettings{
		OutDir:      resolvePath(baseDir, orDefault(rc.OutDir, "data")),
		HTMLReport:  rc.HTMLReport,
		Concurrency: max(rc.Concurrency, 1),
	}
	if rc.Archive != "" {
		rs.Archive = resolvePath(baseDir, rc.Archive)
	}
	return rs
}

func buildSources(fc fileConfig, baseDir string) ([]domain.SourceConfig, error) {
	if fc.Run.MaxItemsPerSource < 0 {
		return nil, domain.ConfigErrorf("run.max_items_per_source", "must not be negative")
	}
	defLimit := fc.Run.MaxItemsPerSource
	if defLimit == 0 {
		defLimit = defaultLimit
	}

	names := make([]string, 0, len(fc.Sources))
	for name := range fc.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.SourceConfig, 0, len(names))
	for _, name := range names {
		entry := fc.Sources[name]
		if !domain.IsKnownSource(name) {
			return nil, domain.ConfigErrorf("sources", "unknown source %q (known: %v)", name, domain.KnownSources)
		}

		params, lists, err := entry.split()
		if err != nil {
			return nil, domain.ConfigErrorf("sources."+name, "%v", err)
		}
		if err := loadListFiles(name, params, lists, baseDir); err != nil {
			return nil, err
		}

		src := domain.SourceConfig{
			Name:    name,
			Enabled: entry.Enabled,
			Limit:   entry.Limit,
			Params:  params,
			Lists:   lists,
		}
		if src.Limit == 0 {
			src.Limit = defLimit
			if name == domain.SourceYouTube {
				src.Limit = min(src.Limit, maxYouTubeLimit)
			}
		}
		if err := validateSource(src); err != nil {
			return nil, err
		}

		creds, err := resolveCredentials(name, entry.Credentials)
		if err != nil {
			return nil, err
		}
		src.Credentials = creds
		if src.Enabled {
			for _, key := range requiredCredentials(src) {
				if creds[key] == "" {
					return nil, domain.ConfigErrorf("sources."+name+".credentials",
						"%s is required (set %s)", key, credentialVar(name, key, entry.Credentials))
				}
			}
		}
		out = append(out, src)
	}
	return out, nil
}

// loadListFiles merges "<list>_file" CSV parameters into the named list.
func loadListFiles(source string, params map[string]string, lists map[string][]string, baseDir string) error {
	for key, path := range params {
		list, ok := strings.CutSuffix(key, "_file")
		if !ok || path == "" {
			continue
		}
		var (
			items []string
			err   error
		)
		if list == "subreddits" {
			items, err = LoadSubreddits(resolvePath(baseDir, path))
		} else {
			items, err = LoadKeywords(resolvePath(baseDir, path))
		}
		if err != nil {
			return domain.ConfigErrorf("sources."+source+"."+key, "%v", err)
		}
		lists[list] = append(lists[list], items...)
		delete(params, key)
	}
	return nil
}

// buildTerms collects top-level terms, the keyword file and legacy
// per-source search_terms, then deduplicates case-insensitively.
func buildTerms(fc fileConfig, baseDir string) ([]domain.SearchTerm, error) {
	var raw []domain.SearchTerm
	for i, t := range fc.SearchTerms {
		if strings.TrimSpace(t.Text) == "" {
			return nil, domain.ConfigErrorf("search_terms["+strconv.Itoa(i)+"]", "empty term")
		}
		raw = append(raw, domain.SearchTerm{Text: t.Text, Sources: t.Sources})
	}
	if fc.SearchTermsFile != "" {
		kws, err := LoadKeywords(resolvePath(baseDir, fc.SearchTermsFile))
		if err != nil {
			return nil, domain.ConfigErrorf("search_terms_file", "%v", err)
		}
		for _, kw := range kws {
			raw = append(raw, domain.SearchTerm{Text: kw})
		}
	}

	names := make([]string, 0, len(fc.Sources))
	for name := range fc.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, t := range fc.Sources[name].SearchTerms {
			if strings.TrimSpace(t) == "" {
				return nil, domain.ConfigErrorf("sources."+name+".search_terms", "empty term")
			}
			raw = append(raw, domain.SearchTerm{Text: t, Sources: []string{name}})
		}
	}

	var (
		out   []domain.SearchTerm
		index = make(map[string]int)
	)
	for _, t := range raw {
		t.Text = strings.Join(strings.Fields(t.Text), " ")
		t.Sources = append([]string(nil), t.Sources...)
		for i, s := range t.Sources {
			s = strings.ToLower(strings.TrimSpace(s))
			if !domain.IsKnownSource(s) {
				return nil, domain.ConfigErrorf("search_terms", "term %q references unknown source %q", t.Text, s)
			}
			t.Sources[i] = s
		}

		key := strings.ToLower(t.Text)
		if i, seen := index[key]; seen {
			out[i].Sources = mergeRestrictions(out[i].Sources, t.Sources)
			continue
		}
		index[key] = len(out)
		out = append(out, t)
	}
	return out, nil
}

// mergeRestrictions unions two source restrictions; an empty list means
// unrestricted and absorbs the other.
func mergeRestrictions(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	merged := append([]string(nil), a...)
	for _, s := range b {
		if !contains(merged, s) {
			merged = append(merged, s)
		}
	}
	return merged
}

// checkCoverage rejects an enabled source that every term excludes; it would
// be queried zero times and look like an empty result.
func checkCoverage(terms []domain.SearchTerm, sources []domain.SourceConfig) error {
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		covered := false
		for _, t := range terms {
			if t.AppliesTo(src.Name) {
				covered = true
				break
			}
		}
		if !covered {
			return domain.ConfigErrorf("sources."+src.Name,
				"enabled but no search term applies to it (add an unrestricted term or disable the source)")
		}
	}
	return nil
}

func hasEnabled(sources []domain.SourceConfig) bool {
	for _, s := range sources {
		if s.Enabled {
			return true
		}
	}
	return false
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
