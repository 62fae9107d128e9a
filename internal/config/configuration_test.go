package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Success_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, 8080, cfg.WebServerPort)
	require.Equal(t, "recordings", cfg.RecordingDir)
	require.Equal(t, "recording.mov", cfg.RecordingFileName)
	require.Equal(t, time.Duration(0), cfg.MaxVideoLength)
	require.Equal(t, 30, cfg.FrameRate)
	require.Equal(t, "back", cfg.CameraPosition)
	require.Equal(t, "photo", cfg.RecordingMode)
	require.Equal(t, "fit", cfg.PreviewContentMode)
	require.Equal(t, 1024, cfg.EditorPreviewMaxSide)
	require.False(t, cfg.AudioEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	t.Setenv("WEBSERVER_PORT", "9000")
	t.Setenv("MAX_VIDEO_LENGTH", "90s")
	t.Setenv("CAMERA_POSITION", "front")
	t.Setenv("RECORDING_MODE", "video")
	t.Setenv("SQUARE_MODE", "true")
	t.Setenv("AUDIO_ENABLED", "true")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.WebServerPort)
	require.Equal(t, 90*time.Second, cfg.MaxVideoLength)
	require.Equal(t, "front", cfg.CameraPosition)
	require.Equal(t, "video", cfg.RecordingMode)
	require.True(t, cfg.SquareMode)
	require.True(t, cfg.AudioEnabled)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FRAME_RATE=24\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("FRAME_RATE") })

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, 24, cfg.FrameRate)
}

func TestLoadConfig_ValidationError(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	t.Setenv("PREVIEW_CONTENT_MODE", "stretch")

	cfg, err := LoadConfig(context.Background())
	require.Error(t, err)
	require.Nil(t, cfg)
}
