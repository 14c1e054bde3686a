package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Stream StreamConfig
	Queue  QueueConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// StreamConfig holds credentials for the external call session provider
type StreamConfig struct {
	APIKey        string
	APISecret     string
	BaseURL       string
	Timeout       time.Duration
	TokenValidity time.Duration
}

// QueueConfig tunes the instant-appointment queue and call lifecycle
type QueueConfig struct {
	AverageSessionMinutes int
	InstantDuration       time.Duration
	EnforceCallWindow     bool
	CallWindowLead        time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	streamTimeout, err := time.ParseDuration(viper.GetString("STREAM_TIMEOUT"))
	if err != nil {
		streamTimeout = 10 * time.Second
	}

	tokenValidity, err := time.ParseDuration(viper.GetString("STREAM_TOKEN_VALIDITY"))
	if err != nil {
		tokenValidity = 24 * time.Hour
	}

	avgSessionMinutes := viper.GetInt("QUEUE_AVG_SESSION_MINUTES")
	if avgSessionMinutes <= 0 {
		avgSessionMinutes = 15
	}

	instantDuration, err := time.ParseDuration(viper.GetString("QUEUE_INSTANT_DURATION"))
	if err != nil {
		instantDuration = 30 * time.Minute
	}

	callWindowLead, err := time.ParseDuration(viper.GetString("QUEUE_CALL_WINDOW_LEAD"))
	if err != nil {
		callWindowLead = 5 * time.Minute
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		Stream: StreamConfig{
			APIKey:        viper.GetString("STREAM_API_KEY"),
			APISecret:     viper.GetString("STREAM_API_SECRET"),
			BaseURL:       viper.GetString("STREAM_BASE_URL"),
			Timeout:       streamTimeout,
			TokenValidity: tokenValidity,
		},
		Queue: QueueConfig{
			AverageSessionMinutes: avgSessionMinutes,
			InstantDuration:       instantDuration,
			EnforceCallWindow:     viper.GetBool("QUEUE_ENFORCE_CALL_WINDOW"),
			CallWindowLead:        callWindowLead,
		},
	}

	return config, nil
}
