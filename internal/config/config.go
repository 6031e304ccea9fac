package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Provider Provider `mapstructure:"provider"`
	News     News     `mapstructure:"news"`
	Auth     Auth     `mapstructure:"auth"`
	Worker   Worker   `mapstructure:"worker"`
	AI       AI       `mapstructure:"ai"`
	Mail     Mail     `mapstructure:"mail"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Provider holds the configuration for the market data provider (Twelve Data).
type Provider struct {
	ApiKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSec     int     `mapstructure:"timeout_sec"`
	MinIntervalMs  int     `mapstructure:"min_interval_ms"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// News holds the configuration for the GNews API.
type News struct {
	ApiKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Auth holds the configuration for JWT authentication and the seeded admin account.
type Auth struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	ResetTTLHours int    `mapstructure:"reset_ttl_hours"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Worker holds the configuration for the background signal worker and
// the websocket price broadcaster.
type Worker struct {
	PollIntervalSec      int `mapstructure:"poll_interval_sec"`
	BroadcastIntervalSec int `mapstructure:"broadcast_interval_sec"`
}

// AI holds the configuration for the external prediction subprocess.
type AI struct {
	PythonExecutable string `mapstructure:"python_executable"`
	ScriptPath       string `mapstructure:"script_path"`
	ModelDir         string `mapstructure:"model_dir"`
	TimeoutSec       int    `mapstructure:"timeout_sec"`
}

// Mail holds the SMTP configuration for outgoing notifications.
// Leaving Host empty disables mail delivery.
type Mail struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port      int    `mapstructure:"port"`
	UploadDir string `mapstructure:"upload_dir"`
	AppURL    string `mapstructure:"app_url"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("provider.base_url", "https://api.twelvedata.com")
	viper.SetDefault("provider.timeout_sec", 30)
	viper.SetDefault("provider.min_interval_ms", 8000) // 8 calls/min plan (7500ms) + buffer
	viper.SetDefault("provider.rate_limit", 1)
	viper.SetDefault("provider.rate_limit_burst", 1)
	viper.SetDefault("news.base_url", "https://gnews.io/api/v4")
	viper.SetDefault("auth.token_ttl_hours", 24)
	viper.SetDefault("auth.reset_ttl_hours", 1)
	viper.SetDefault("worker.poll_interval_sec", 300)
	viper.SetDefault("worker.broadcast_interval_sec", 60)
	viper.SetDefault("ai.python_executable", "python")
	viper.SetDefault("ai.timeout_sec", 60)
	viper.SetDefault("mail.port", 465)
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.upload_dir", "public/uploads")
	viper.SetDefault("server.app_url", "http://localhost:3000")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
