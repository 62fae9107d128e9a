package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"gt=0,lte=65535"`

	// Recording Configuration
	RecordingDir      string        `mapstructure:"RECORDING_DIR" validate:"required"`
	RecordingFileName string        `mapstructure:"RECORDING_FILENAME" validate:"required"`
	MaxVideoLength    time.Duration `mapstructure:"MAX_VIDEO_LENGTH" validate:"gte=0"`
	FrameRate         int           `mapstructure:"FRAME_RATE" validate:"gt=0,lte=120"`
	AudioEnabled      bool          `mapstructure:"AUDIO_ENABLED"`

	// Camera Configuration
	CameraPosition string `mapstructure:"CAMERA_POSITION" validate:"oneof=back front"`
	RecordingMode  string `mapstructure:"RECORDING_MODE" validate:"oneof=photo video"`
	SquareMode     bool   `mapstructure:"SQUARE_MODE"`

	// Preview Configuration
	PreviewWidth       int    `mapstructure:"PREVIEW_WIDTH" validate:"gt=0"`
	PreviewHeight      int    `mapstructure:"PREVIEW_HEIGHT" validate:"gt=0"`
	PreviewContentMode string `mapstructure:"PREVIEW_CONTENT_MODE" validate:"oneof=fit fill"`

	// Editor Configuration
	ResourceDir          string `mapstructure:"RESOURCE_DIR"`
	EditorPreviewMaxSide int    `mapstructure:"EDITOR_PREVIEW_MAX_SIDE" validate:"min=64"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			viper.BindEnv(tag)
		}
	}
	slog.Debug("Environment variables bound", "fields", typ.NumField())
}

func LoadConfig(ctx context.Context) (*Config, error) {
	// A local .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("RECORDING_DIR", "recordings")
	viper.SetDefault("RECORDING_FILENAME", "recording.mov")
	viper.SetDefault("MAX_VIDEO_LENGTH", "0s")
	viper.SetDefault("FRAME_RATE", 30)
	viper.SetDefault("CAMERA_POSITION", "back")
	viper.SetDefault("RECORDING_MODE", "photo")
	viper.SetDefault("PREVIEW_WIDTH", 640)
	viper.SetDefault("PREVIEW_HEIGHT", 480)
	viper.SetDefault("PREVIEW_CONTENT_MODE", "fit")
	viper.SetDefault("EDITOR_PREVIEW_MAX_SIDE", 1024)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
