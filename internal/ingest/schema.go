package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors config.yml.
type fileConfig struct {
	Run             runConfig              `yaml:"run"`
	SearchTerms     []termEntry            `yaml:"search_terms"`
	SearchTermsFile string                 `yaml:"search_terms_file"`
	Sources         map[string]sourceEntry `yaml:"sources"`
}

type runConfig struct {
	OutDir            string `yaml:"out_dir"`
	MaxItemsPerSource int    `yaml:"max_items_per_source"`
	HTMLReport        bool   `yaml:"html_report"`
	Archive           string `yaml:"archive"`
	Concurrency       int    `yaml:"concurrency"`
}

// termEntry accepts either a bare string or {term, sources}.
type termEntry struct {
	Text    string
	Sources []string
}

func (t *termEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t.Text = node.Value
		return nil
	case yaml.MappingNode:
		var raw struct {
			Term    string   `yaml:"term"`
			Sources []string `yaml:"sources"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		t.Text = raw.Term
		t.Sources = raw.Sources
		return nil
	default:
		return fmt.Errorf("line %d: search term must be a string or a mapping", node.Line)
	}
}

// sourceEntry holds the common keys; everything else is a source parameter.
type sourceEntry struct {
	Enabled     bool              `yaml:"enabled"`
	Limit       int               `yaml:"limit"`
	Credentials map[string]string `yaml:"credentials"`
	SearchTerms []string          `yaml:"search_terms"`
	Extra       map[string]any    `yaml:",inline"`
}

// split separates scalar parameters from list parameters.
func (s sourceEntry) split() (map[string]string, map[string][]string, error) {
	params := make(map[string]string)
	lists := make(map[string][]string)
	for key, v := range s.Extra {
		switch val := v.(type) {
		case nil:
		case string:
			params[key] = strings.TrimSpace(val)
		case bool:
			params[key] = strconv.FormatBool(val)
		case int:
			params[key] = strconv.Itoa(val)
		case float64:
			params[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case []any:
			items := make([]string, 0, len(val))
			for _, item := range val {
				str, ok := item.(string)
				if !ok {
					return nil, nil, fmt.Errorf("%s: list items must be strings", key)
				}
				if str = strings.TrimSpace(str); str != "" {
					items = append(items, str)
				}
			}
			lists[key] = items
		default:
			return nil, nil, fmt.Errorf("%s: unsupported value of type %T", key, v)
		}
	}
	return params, lists, nil
}
