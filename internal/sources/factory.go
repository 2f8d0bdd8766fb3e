package sources

import (
	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/reddit"
	"github.com/qepting91/idea-collector/internal/sources/youtube"
)

// New selects the adapter implementation for a source config.
func New(cfg domain.SourceConfig) (domain.Source, error) {
	var (
		src domain.Source
		err error
	)
	switch cfg.Name {
	case domain.SourceReddit:
		src, err = reddit.New(cfg)
	case domain.SourceYouTube:
		src, err = youtube.New(cfg)
	default:
		return nil, domain.ConfigErrorf("sources", "unknown source %q (known: %v)", cfg.Name, domain.KnownSources)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Build constructs an adapter for every enabled source, keyed by name.
func Build(configs []domain.SourceConfig) (map[string]domain.Source, error) {
	adapters := make(map[string]domain.Source, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		src, err := New(cfg)
		if err != nil {
			return nil, err
		}
		adapters[cfg.Name] = src
	}
	return adapters, nil
}
