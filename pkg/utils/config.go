package utils

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Session   SessionConfig
	OTP       OTPConfig
	Booking   BookingConfig
	Payment   PaymentConfig
	Razorpay  RazorpayConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Email     EmailConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	AutoMigrate bool
}

type SessionConfig struct {
	ExpiryHours int
}

type OTPConfig struct {
	ExpiryMinutes int
	Length        int
	MaxAttempts   int
}

type BookingConfig struct {
	AttemptTTLMinutes    int
	SweepIntervalSeconds int
}

type PaymentConfig struct {
	Provider       string
	Currency       string
	TimeoutSeconds int
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CacheTTLSeconds int
}

type KafkaConfig struct {
	Brokers       []string
	BookingTopic  string
	ConsumerGroup string
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
}

type RateLimitConfig struct {
	OTP     string
	Payment string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "resort-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("OTP_EXPIRY_MINUTES", 5)
	viper.SetDefault("OTP_LENGTH", 6)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)
	viper.SetDefault("BOOKING_ATTEMPT_TTL_MINUTES", 30)
	viper.SetDefault("BOOKING_SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("PAYMENT_PROVIDER", "razorpay")
	viper.SetDefault("PAYMENT_CURRENCY", "INR")
	viper.SetDefault("PAYMENT_TIMEOUT_SECONDS", 10)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("AVAILABILITY_CACHE_TTL_SECONDS", 15)
	viper.SetDefault("KAFKA_BOOKING_TOPIC", "booking.events")
	viper.SetDefault("KAFKA_CONSUMER_GROUP", "resort-booking-notifier")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	viper.SetDefault("RATE_LIMIT_OTP", "5-M")
	viper.SetDefault("RATE_LIMIT_PAYMENT", "20-M")

	// .env is optional when everything comes from the environment
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:           viper.GetString("APP_NAME"),
			Port:           viper.GetString("PORT"),
			Debug:          viper.GetBool("DEBUG"),
			LogPath:        viper.GetString("LOG_PATH"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		OTP: OTPConfig{
			ExpiryMinutes: viper.GetInt("OTP_EXPIRY_MINUTES"),
			Length:        viper.GetInt("OTP_LENGTH"),
			MaxAttempts:   viper.GetInt("OTP_MAX_ATTEMPTS"),
		},
		Booking: BookingConfig{
			AttemptTTLMinutes:    viper.GetInt("BOOKING_ATTEMPT_TTL_MINUTES"),
			SweepIntervalSeconds: viper.GetInt("BOOKING_SWEEP_INTERVAL_SECONDS"),
		},
		Payment: PaymentConfig{
			Provider:       viper.GetString("PAYMENT_PROVIDER"),
			Currency:       strings.ToUpper(viper.GetString("PAYMENT_CURRENCY")),
			TimeoutSeconds: viper.GetInt("PAYMENT_TIMEOUT_SECONDS"),
		},
		Razorpay: RazorpayConfig{
			KeyID:         viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret:     viper.GetString("RAZORPAY_KEY_SECRET"),
			WebhookSecret: viper.GetString("RAZORPAY_WEBHOOK_SECRET"),
		},
		Redis: RedisConfig{
			Addr:            viper.GetString("REDIS_ADDR"),
			Password:        viper.GetString("REDIS_PASSWORD"),
			DB:              viper.GetInt("REDIS_DB"),
			CacheTTLSeconds: viper.GetInt("AVAILABILITY_CACHE_TTL_SECONDS"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(viper.GetString("KAFKA_BROKERS")),
			BookingTopic:  viper.GetString("KAFKA_BOOKING_TOPIC"),
			ConsumerGroup: viper.GetString("KAFKA_CONSUMER_GROUP"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Tracing: TracingConfig{
			Enabled:        viper.GetBool("TRACING_ENABLED"),
			JaegerEndpoint: viper.GetString("JAEGER_ENDPOINT"),
		},
		RateLimit: RateLimitConfig{
			OTP:     viper.GetString("RATE_LIMIT_OTP"),
			Payment: viper.GetString("RATE_LIMIT_PAYMENT"),
		},
	}

	return config, nil
}

// splitList turns "a:9092, b:9092" into its non-empty parts
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
