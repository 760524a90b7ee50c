package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Engine.ContentScanCap)
	assert.Equal(t, 50, cfg.Engine.NeighborCap)
	assert.Equal(t, 5, cfg.Engine.CollaborativeLimit)
	assert.Equal(t, 0.5, cfg.Engine.ContentMinScore)
	assert.Equal(t, 0.7, cfg.Engine.CollaborativeScore)
	assert.Equal(t, 0.8, cfg.Engine.LocationScore)
	assert.Equal(t, 0.5, cfg.Engine.TrendingScore)
	assert.False(t, cfg.Engine.SimilarityRankByScore)
	assert.Equal(t, "postgres", cfg.Engine.NeighborSource)
	assert.Equal(t, 30*time.Second, cfg.Engine.GraphBreaker.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Caching.RecommendationsTTL)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoadWith_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENGINE_CONTENT_SCAN_CAP", "10")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Engine.ContentScanCap)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestDefaultEngineConfig(t *testing.T) {
	engine := DefaultEngineConfig()
	assert.Equal(t, uint32(5), engine.GraphBreaker.FailureThreshold)
	assert.Equal(t, 0.75, engine.TasteScore)
}
