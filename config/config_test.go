package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvAsTimeDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "1500ms", want: 1500 * time.Millisecond},
		{name: "plain seconds", value: "8", want: 8 * time.Second},
		{name: "garbage falls back", value: "soon", want: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsTimeDuration("TEST_DURATION", 3*time.Second))
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("TEST_SLICE", " a, b ,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsSlice("TEST_SLICE", nil))
	assert.Equal(t, []string{"x"}, getEnvAsSlice("TEST_SLICE_MISSING", []string{"x"}))
}

func TestLoad(t *testing.T) {
	t.Setenv("DB_QUERY_TIMEOUT", "2s")
	t.Setenv("STATS_TIMEZONE", "UTC")
	t.Setenv("IMPORT_VERIFY_IMAGES", "false")

	cfg := Load()
	require.NotNil(t, cfg.Database)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "UTC", cfg.Stats.Timezone)
	assert.False(t, cfg.Import.VerifyImages)
	assert.Equal(t, "table_changes", cfg.Database.NotifyChan)
}
