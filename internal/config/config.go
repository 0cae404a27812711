package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort      string `mapstructure:"SERVER_PORT"`
	UpstreamURL     string `mapstructure:"UPSTREAM_URL"`
	UpstreamAPIKey  string `mapstructure:"UPSTREAM_API_KEY"`
	DeviceID        string `mapstructure:"DEVICE_ID"`
	DeviceSecret    string `mapstructure:"DEVICE_SECRET"`
	UseMockData     bool   `mapstructure:"USE_MOCK_DATA"`
	MockFixtureDir  string `mapstructure:"MOCK_FIXTURE_DIR"`
	MockLatencyMs   int    `mapstructure:"MOCK_LATENCY_MS"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	UploadTimeoutMs int    `mapstructure:"UPLOAD_TIMEOUT_MS"`
}

func Load() Config {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("SERVER_PORT", ":8080")
	viper.SetDefault("UPSTREAM_URL", "https://api.civicmesh.example")
	viper.SetDefault("UPSTREAM_API_KEY", "")
	viper.SetDefault("DEVICE_ID", "")
	viper.SetDefault("DEVICE_SECRET", "")
	viper.SetDefault("USE_MOCK_DATA", true)
	viper.SetDefault("MOCK_FIXTURE_DIR", "")
	viper.SetDefault("MOCK_LATENCY_MS", 150)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("UPLOAD_TIMEOUT_MS", 30000)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
