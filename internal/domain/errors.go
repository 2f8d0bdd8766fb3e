package domain

import (
	"errors"
	"fmt"
)

// Error kinds as they appear in the run metadata.
const (
	KindConfiguration     = "configuration"
	KindAuthentication    = "authentication"
	KindRateLimit         = "rate_limit"
	KindTransientNetwork  = "transient_network"
	KindMalformedResponse = "malformed_response"
	KindIO                = "io"
	KindUnknown           = "unknown"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrAuthentication    = errors.New("authentication failed")
	ErrRateLimit         = errors.New("rate limited")
	ErrTransientNetwork  = errors.New("transient network error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrIO                = errors.New("io error")
)

var kindSentinels = []struct {
	kind string
	err  error
}{
	{KindConfiguration, ErrConfiguration},
	{KindAuthentication, ErrAuthentication},
	{KindRateLimit, ErrRateLimit},
	{KindTransientNetwork, ErrTransientNetwork},
	{KindMalformedResponse, ErrMalformedResponse},
	{KindIO, ErrIO},
}

// SourceError is returned by adapters. It unwraps to both the kind sentinel
// and the underlying cause.
type SourceError struct {
	Source string
	Kind   error
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewSourceError builds a SourceError of the given kind sentinel.
func NewSourceError(source string, kind, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Err: err}
}

// ConfigError reports an invalid or incomplete configuration.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ConfigErrorf formats a ConfigError for field.
func ConfigErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// KindOf maps any error onto its kind string.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindUnknown
}
