package ingest

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/qepting91/idea-collector/internal/domain"
	"github.com/qepting91/idea-collector/internal/sources/reddit"
)

// Default environment variable per (source, credential key).
var credentialEnv = map[string]map[string]string{
	domain.SourceReddit: {
		"client_id":     "REDDIT_CLIENT_ID",
		"client_secret": "REDDIT_CLIENT_SECRET",
		"username":      "REDDIT_USERNAME",
		"password":      "REDDIT_PASSWORD",
		"user_agent":    "REDDIT_USER_AGENT",
	},
	domain.SourceYouTube: {
		"api_key": "YOUTUBE_API_KEY",
	},
}

// requiredCredentials lists the credential keys an enabled source cannot run without.
func requiredCredentials(src domain.SourceConfig) []string {
	switch src.Name {
	case domain.SourceReddit:
		switch src.Param("mode", reddit.ModeApp) {
		case reddit.ModeApp:
			return []string{"client_id", "client_secret"}
		case reddit.ModeScript:
			return []string{"client_id", "client_secret", "username", "password"}
		}
	case domain.SourceYouTube:
		return []string{"api_key"}
	}
	return nil
}

// resolveCredentials reads every known credential of a source from the
// environment. overrides maps credential keys to alternative variable names.
func resolveCredentials(source string, overrides map[string]string) (map[string]string, error) {
	for key := range overrides {
		if _, ok := credentialEnv[source][key]; !ok {
			return nil, domain.ConfigErrorf("sources."+source+".credentials", "unknown credential %q", key)
		}
	}
	out := make(map[string]string)
	for key, env := range credentialEnv[source] {
		if o := strings.TrimSpace(overrides[key]); o != "" {
			env = o
		}
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			out[key] = v
		}
	}
	return out, nil
}

// credentialVar names the variable a missing credential is read from, for error messages.
func credentialVar(source, key string, overrides map[string]string) string {
	if o := strings.TrimSpace(overrides[key]); o != "" {
		return o
	}
	return credentialEnv[source][key]
}

// LoadEnvFile loads a .env file into the process environment. Variables
// already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return domain.ConfigErrorf("env_file", "%s: %v", path, err)
}
