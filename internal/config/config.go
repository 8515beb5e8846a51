package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Store     StoreConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Data      DataConfig
	Render    RenderConfig
	Note      NoteConfig
	Tools     ToolsConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StoreConfig locates the SQLite database backing the registries
type StoreConfig struct {
	Path string
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	NotePerHour   int
	ExportPerHour int
}

// DataConfig holds the on-disk working directories
type DataConfig struct {
	MediaDir  string // downloaded media artifacts
	OutputDir string // exported documents
	StaticDir string // local images referenced by notes
}

// RenderConfig points at the markdown-render microservice
type RenderConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

// NoteConfig carries pipeline defaults
type NoteConfig struct {
	Quality string
}

// ToolsConfig names the external binaries and feeds the pipeline shells
// out to
type ToolsConfig struct {
	YtdlpBin      string
	FfmpegBin     string
	PodcastAPIURL string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("store.path", "STORE_PATH")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("data.media_dir", "MEDIA_DIR")
	_ = viper.BindEnv("data.output_dir", "OUTPUT_DIR")
	_ = viper.BindEnv("data.static_dir", "STATIC_DIR")
	_ = viper.BindEnv("render.service_url", "RENDER_SERVICE_URL")
	_ = viper.BindEnv("render.timeout", "RENDER_SERVICE_TIMEOUT")
	_ = viper.BindEnv("note.quality", "NOTE_QUALITY")
	_ = viper.BindEnv("ratelimit.note_per_hour", "RATELIMIT_NOTE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.export_per_hour", "RATELIMIT_EXPORT_PER_HOUR")
	_ = viper.BindEnv("tools.ytdlp_bin", "YTDLP_BIN")
	_ = viper.BindEnv("tools.ffmpeg_bin", "FFMPEG_BIN")
	_ = viper.BindEnv("tools.podcast_api_url", "PODCAST_API_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("store.path", "data/medianote.db")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.note_per_hour", 20)
	viper.SetDefault("ratelimit.export_per_hour", 30)
	viper.SetDefault("data.media_dir", "data/media")
	viper.SetDefault("data.output_dir", "data/note_output")
	viper.SetDefault("data.static_dir", "static")
	viper.SetDefault("render.service_url", "http://localhost:8086")
	viper.SetDefault("render.timeout", 120)
	viper.SetDefault("note.quality", "fast")
	viper.SetDefault("tools.ytdlp_bin", "yt-dlp")
	viper.SetDefault("tools.ffmpeg_bin", "ffmpeg")
	viper.SetDefault("tools.podcast_api_url", "https://api.xiaoyuzhoufm.com")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Store: StoreConfig{
			Path: viper.GetString("store.path"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			NotePerHour:   viper.GetInt("ratelimit.note_per_hour"),
			ExportPerHour: viper.GetInt("ratelimit.export_per_hour"),
		},
		Data: DataConfig{
			MediaDir:  viper.GetString("data.media_dir"),
			OutputDir: viper.GetString("data.output_dir"),
			StaticDir: viper.GetString("data.static_dir"),
		},
		Render: RenderConfig{
			ServiceURL: viper.GetString("render.service_url"),
			Timeout:    viper.GetInt("render.timeout"),
		},
		Note: NoteConfig{
			Quality: viper.GetString("note.quality"),
		},
		Tools: ToolsConfig{
			YtdlpBin:      viper.GetString("tools.ytdlp_bin"),
			FfmpegBin:     viper.GetString("tools.ffmpeg_bin"),
			PodcastAPIURL: viper.GetString("tools.podcast_api_url"),
		},
	}

	return cfg, nil
}
