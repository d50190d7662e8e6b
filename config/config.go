package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	Environment     string `mapstructure:"environment"` // "development" or "production"
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb"`
}

type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	GalleryFile   string `mapstructure:"gallery_file"`
	AnalyticsFile string `mapstructure:"analytics_file"`
	UploadsDir    string `mapstructure:"uploads_dir"`
}

type SiteConfig struct {
	URL          string `mapstructure:"url"`
	ContactEmail string `mapstructure:"contact_email"`
}

type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromEmail    string `mapstructure:"from_email"`
	FromName     string `mapstructure:"from_name"`
	ToEmail      string `mapstructure:"to_email"` // Falls back to site.contact_email
}

type RedisConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type SecurityConfig struct {
	BotDetectionEnabled     bool `mapstructure:"bot_detection_enabled"`
	BotMaxRequestsPerMinute int  `mapstructure:"bot_max_requests_per_minute"`
}

type AdminConfig struct {
	LockEnabled  bool   `mapstructure:"lock_enabled"`
	LockCodeHash string `mapstructure:"lock_code_hash"` // bcrypt hash of the unlock code
}

type Config struct {
	WebServer WebServerConfig `mapstructure:"webserver"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Site      SiteConfig      `mapstructure:"site"`
	Email     EmailConfig     `mapstructure:"email"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Security  SecurityConfig  `mapstructure:"security"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

// BROTHERSTUDIO_STORAGE_DATA_DIR overrides storage.data_dir
var envKeyReplacer = strings.NewReplacer(".", "_")

// GalleryPath returns the gallery document location.
func (s StorageConfig) GalleryPath() string {
	return filepath.Join(s.DataDir, s.GalleryFile)
}

// AnalyticsPath returns the analytics document location.
func (s StorageConfig) AnalyticsPath() string {
	return filepath.Join(s.DataDir, s.AnalyticsFile)
}

// IsProduction reports whether cookies should be marked Secure.
func (c Config) IsProduction() bool {
	return c.WebServer.Environment == "production"
}

func LoadConfig() (Config, error) {
	var config Config

	// Local development secrets (SMTP password, admin hash) live in .env.local
	if os.Getenv("BROTHERSTUDIO_WEBSERVER_ENVIRONMENT") != "production" {
		if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
			log.Printf("Error reading .env.local: %v", err)
		}
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Enable environment variable overrides
	v.SetEnvPrefix("BROTHERSTUDIO")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
		log.Println("No config file found, using defaults and environment")
	}

	if err := v.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	if config.Email.ToEmail == "" {
		config.Email.ToEmail = config.Site.ContactEmail
	}

	log.Println("Configuration loaded successfully")
	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

func setDefaults(v *viper.Viper) {
	// WebServer defaults
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.ip", "127.0.0.1")
	v.SetDefault("webserver.environment", "development")
	v.SetDefault("webserver.read_timeout", 15)
	v.SetDefault("webserver.write_timeout", 15)
	v.SetDefault("webserver.shutdown_timeout", 30)
	v.SetDefault("webserver.max_upload_mb", 20)

	// Storage defaults
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.gallery_file", "gallery.json")
	v.SetDefault("storage.analytics_file", "analytics.json")
	v.SetDefault("storage.uploads_dir", "public/uploads")

	// Site defaults
	v.SetDefault("site.url", "https://brotherstudio.ca")
	v.SetDefault("site.contact_email", "contact@brotherstudio.ca")

	// Email defaults
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", "587")
	v.SetDefault("email.from_email", "onboarding@brotherstudio.ca")
	v.SetDefault("email.from_name", "BrotherStudio")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.operation_timeout", 2)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size_mb", 8)
	v.SetDefault("cache.ttl_seconds", 10)
	v.SetDefault("cache.counter_size", 1000)

	// RateLimit defaults
	v.SetDefault("ratelimit.requests_per_second", 10.0)
	v.SetDefault("ratelimit.burst", 20)

	// Security defaults
	v.SetDefault("security.bot_detection_enabled", false)
	v.SetDefault("security.bot_max_requests_per_minute", 120)

	// Admin defaults
	v.SetDefault("admin.lock_enabled", false)
	v.SetDefault("admin.lock_code_hash", "")
}
