package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Downloads DownloadsConfig
	Worker    WorkerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port    string
	Env     string
	BaseURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DownloadsConfig struct {
	Dir            string
	PlaylistMax    int
	SyncTimeout    time.Duration
	RetentionHours int
	CookieFile     string
}

type WorkerConfig struct {
	Concurrency int
}

type DatabaseConfig struct {
	Path string
}

type AuthConfig struct {
	APIKeys   []string
	JWTSecret string
}

type RateLimitConfig struct {
	PerMinute int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.base_url", "http://localhost:5000")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("downloads.dir", "./downloads")
	viper.SetDefault("downloads.playlist_max", 50)
	viper.SetDefault("downloads.sync_timeout_secs", 60)
	viper.SetDefault("downloads.retention_hours", 24)
	viper.SetDefault("downloads.cookie_file", "")
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("database.path", "media.db")
	viper.SetDefault("auth.api_keys", []string{})
	viper.SetDefault("auth.jwt_secret", "change-me-in-production")
	viper.SetDefault("ratelimit.per_minute", 20)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:    viper.GetString("server.port"),
			Env:     viper.GetString("server.env"),
			BaseURL: viper.GetString("server.base_url"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Downloads: DownloadsConfig{
			Dir:            viper.GetString("downloads.dir"),
			PlaylistMax:    viper.GetInt("downloads.playlist_max"),
			SyncTimeout:    time.Duration(viper.GetInt("downloads.sync_timeout_secs")) * time.Second,
			RetentionHours: viper.GetInt("downloads.retention_hours"),
			CookieFile:     viper.GetString("downloads.cookie_file"),
		},
		Worker: WorkerConfig{
			Concurrency: viper.GetInt("worker.concurrency"),
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Auth: AuthConfig{
			APIKeys:   viper.GetStringSlice("auth.api_keys"),
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: viper.GetInt("ratelimit.per_minute"),
		},
	}

	return cfg, nil
}
