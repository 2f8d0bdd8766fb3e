package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/httpx"
)

// apiError is the Google API error envelope.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
			Domain string `json:"domain"`
		} `json:"errors"`
	} `json:"error"`
}

// Quota and throttling reasons come back as 403, key problems as 400.
var (
	rateLimitReasons = map[string]bool{
		"quotaExceeded":         true,
		"rateLimitExceeded":     true,
		"dailyLimitExceeded":    true,
		"userRateLimitExceeded": true,
	}
	authReasons = map[string]bool{
		"keyInvalid":          true,
		"keyExpired":          true,
		"forbidden":           true,
		"accessNotConfigured": true,
	}
)

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	kind := httpx.StatusKind(resp.StatusCode)
	msg := strings.TrimSpace(string(body))

	var envelope apiError
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != 0 {
		msg = envelope.Error.Message
		for _, e := range envelope.Error.Errors {
			switch {
			case rateLimitReasons[e.Reason]:
				kind = domain.ErrRateLimit
			case authReasons[e.Reason]:
				kind = domain.ErrAuthentication
			}
			if e.Reason != "" {
				msg = e.Reason + ": " + msg
			}
		}
	}
	return domain.NewSourceError(domain.SourceYouTube, kind,
		fmt.Errorf("youtube data API %d: %s", resp.StatusCode, msg))
}

// redactKey strips the API key from URL errors before they reach logs and
// output files.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), cause: errors.Unwrap(err)}
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }
