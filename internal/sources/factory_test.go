package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/idea-collector/internal/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     domain.SourceConfig
		want    string
		wantErr bool
	}{
		{
			name: "reddit mock",
			cfg:  domain.SourceConfig{Name: "reddit", Enabled: true, Limit: 5, Params: map[string]string{"mode": "mock"}},
			want: "reddit",
		},
		{
			name: "reddit public",
			cfg:  domain.SourceConfig{Name: "reddit", Enabled: true, Limit: 5, Params: map[string]string{"mode": "public"}},
			want: "reddit",
		},
		{
			name: "youtube",
			cfg:  domain.SourceConfig{Name: "youtube", Enabled: true, Limit: 5, Credentials: map[string]string{"api_key": "k"}},
			want: "youtube",
		},
		{
			name:    "youtube without key",
			cfg:     domain.SourceConfig{Name: "youtube", Enabled: true},
			wantErr: true,
		},
		{
			name:    "unknown",
			cfg:     domain.SourceConfig{Name: "hackernews", Enabled: true},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConfiguration)
				assert.Nil(t, src)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}
}

func TestBuildSkipsDisabled(t *testing.T) {
	adapters, err := Build([]domain.SourceConfig{
		{Name: "reddit", Enabled: true, Params: map[string]string{"mode": "mock"}},
		{Name: "youtube", Enabled: false},
	})
	require.NoError(t, err)
	assert.Len(t, adapters, 1)
	assert.Contains(t, adapters, "reddit")
}

func TestBuildPropagatesError(t *testing.T) {
	_, err := Build([]domain.SourceConfig{
		{Name: "youtube", Enabled: true},
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
