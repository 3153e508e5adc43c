package config

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Port)
	assert.Equal(t, "0.0.0.0:10000", cfg.Addr())
	assert.Equal(t, "brain/artifacts/best_xception.onnx", cfg.BrainModelPath)
	assert.Equal(t, "lung/artifacts/effnetv2b0_final.onnx", cfg.LungModelPath)
	assert.Equal(t, int64(1_000_000), cfg.ModelMinBytes)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.False(t, cfg.DownloadModelsOnStart)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STATIC_DIR", "/srv/www")
	t.Setenv("MODEL_MIN_BYTES", "42")
	t.Setenv("DOWNLOAD_MODELS_ON_START", "true")
	t.Setenv("INTRA_OP_THREADS", "2")
	t.Setenv("BRAIN_MODEL_URL", "https://models.internal/brain.onnx")
	t.Setenv("LUNG_MODEL_URL", "https://models.internal/lung.onnx")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "0.0.0.0:8081", cfg.Addr())
	assert.Equal(t, "/srv/www", cfg.StaticDir)
	assert.Equal(t, int64(42), cfg.ModelMinBytes)
	assert.True(t, cfg.DownloadModelsOnStart)
	assert.Equal(t, 2, cfg.IntraOpThreads)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://models.internal/brain.onnx", cfg.BrainModelURL)
	assert.Equal(t, "https://models.internal/lung.onnx", cfg.LungModelURL)
}

func TestLoadWritesNoLogsWithoutDotEnv(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = original })

	_, err := Load()
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PORT", "not-a-port")
	_, err = Load()
	assert.Error(t, err)
}
