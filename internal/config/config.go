package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// BindHost is fixed; only the port is configurable.
	BindHost = "0.0.0.0"

	// The release ships Keras artifacts; the ONNX asset names are placeholders
	// until converted models are published. Override BRAIN_MODEL_URL and
	// LUNG_MODEL_URL to point at real exports.
	releaseBaseURL = "https://github.com/Abhishek5658/AI_health_care/releases/download/v1-models"
)

type Config struct {
	AppName  string `mapstructure:"app_name"`
	AppEnv   string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"app_log_level"`
	Port     int    `mapstructure:"port"`

	StaticDir string `mapstructure:"static_dir"`

	BrainModelPath string `mapstructure:"brain_model_path"`
	LungModelPath  string `mapstructure:"lung_model_path"`
	BrainModelURL  string `mapstructure:"brain_model_url"`
	LungModelURL   string `mapstructure:"lung_model_url"`
	ModelMinBytes  int64  `mapstructure:"model_min_bytes"`

	DownloadModelsOnStart bool `mapstructure:"download_models_on_start"`

	OnnxRuntimeLib string `mapstructure:"onnxruntime_lib"`
	IntraOpThreads int    `mapstructure:"intra_op_threads"`

	MetricAddress      string  `mapstructure:"metric_address"`
	MetricSamplingRate float64 `mapstructure:"metric_sampling_rate"`
}

var defaults = map[string]interface{}{
	"app_name":                 "medscan-api",
	"app_env":                  "local",
	"app_log_level":            "INFO",
	"port":                     10000,
	"static_dir":               "static",
	"brain_model_path":         "brain/artifacts/best_xception.onnx",
	"lung_model_path":          "lung/artifacts/effnetv2b0_final.onnx",
	"brain_model_url":          releaseBaseURL + "/brain_best_xception.onnx",
	"lung_model_url":           releaseBaseURL + "/lung_effnetv2b0_final.onnx",
	"model_min_bytes":          1_000_000,
	"download_models_on_start": false,
	"onnxruntime_lib":          "",
	"intra_op_threads":         0,
	"metric_address":           "localhost:8125",
	"metric_sampling_rate":     1.0,
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is normal; the logger is not configured yet.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config from environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.BrainModelPath == "" || c.LungModelPath == "" {
		return fmt.Errorf("model paths must not be empty")
	}
	if c.IntraOpThreads < 0 {
		return fmt.Errorf("invalid INTRA_OP_THREADS %d", c.IntraOpThreads)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(BindHost, strconv.Itoa(c.Port))
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}
