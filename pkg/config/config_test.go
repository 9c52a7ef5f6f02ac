package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
data:
  osm_file: yogyakarta.osm.pbf
  gtfs_feeds:
    transjogja: transjogja.zip
routing:
  boarding_penalty_seconds:
    3: 120
`

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "yogyakarta.osm.pbf", cfg.Data.OsmFile)
	assert.Equal(t, map[string]string{"transjogja": "transjogja.zip"}, cfg.Data.GtfsFeeds)
	assert.Equal(t, ":5000", cfg.Server.ListenAddr)
	assert.Equal(t, 5.0, cfg.Routing.WalkSpeedKmh)
	assert.Equal(t, 3, cfg.Routing.TripBasedMaxRounds)

	rc := cfg.Routing.RouterConfig()
	assert.Equal(t, int64(120000), rc.BoardingPenaltyByRouteType[3])
	assert.Equal(t, 30*time.Minute, rc.LimitStreetTime)
	assert.Equal(t, time.Hour, rc.MaxProfileDuration)

	assert.Equal(t, 120*time.Second, cfg.Routing.InterpolationConfig().MaxTransferWalkTime)
	assert.Equal(t, 30*time.Second, cfg.Realtime.PollInterval())
	assert.Equal(t, zerolog.InfoLevel, cfg.Log.LoggerConfig().Level)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("NAVX_LISTEN_ADDR", ":6000")
	t.Setenv("NAVX_WALK_SPEED_KMH", "4.2")
	t.Setenv("NAVX_LOG_LEVEL", "DEBUG")
	t.Setenv("NAVX_LEAST_WAIT_ENTER", "yes")
	t.Setenv("NAVX_MAX_CONCURRENT_REQUESTS", "64")

	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.ListenAddr)
	assert.Equal(t, 4.2, cfg.Routing.WalkSpeedKmh)
	assert.True(t, cfg.Routing.LeastWaitEnter)
	assert.True(t, cfg.Routing.RouterConfig().LeastWaitEnter)
	assert.Equal(t, 64, cfg.Server.MaxConcurrentRequests)
	assert.Equal(t, zerolog.DebugLevel, cfg.Log.LoggerConfig().Level)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no feeds", "data:\n  osm_file: a.osm.pbf\n"},
		{"negative walk speed", minimal + "  walk_speed_kmh: -1\n"},
		{"bad realtime url", minimal + "realtime:\n  feed_urls:\n    transjogja: not a url\n"},
		{"unknown log level", minimal + "log:\n  level: loud\n"},
		{"malformed yaml", "data: [["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsBadEnv(t *testing.T) {
	t.Setenv("NAVX_MAX_VISITED_NODES", "many")
	_, err := Parse([]byte(minimal))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0644))

	cfg, err := Load(filepath.Join(dir, "missing.yml"), path)
	require.NoError(t, err)
	assert.Equal(t, "yogyakarta.osm.pbf", cfg.Data.OsmFile)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	_, err = Load()
	assert.ErrorIs(t, err, ErrNoConfigFile)
}
