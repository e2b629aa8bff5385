/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the storefront-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	OperatorDecisionQueue   string `mapstructure:"OPERATOR_DECISION_QUEUE"`
	SessionSecret           string `mapstructure:"SESSION_SECRET"`
	SessionTTLHours         int    `mapstructure:"SESSION_TTL_HOURS"`
	InternalAPIKey          string `mapstructure:"INTERNAL_API_KEY"`
	SignupBonus             string `mapstructure:"SIGNUP_BONUS"`
	ReferralThreshold       int    `mapstructure:"REFERRAL_THRESHOLD"`
	DiscountPercent         int64  `mapstructure:"DISCOUNT_PERCENT"`
	OrderRateLimitPerMinute int    `mapstructure:"ORDER_RATE_LIMIT_PER_MINUTE"`
	ClaimRateLimitPerMinute int    `mapstructure:"CLAIM_RATE_LIMIT_PER_MINUTE"`
	CORSAllowedOrigins      string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OPERATOR_DECISION_QUEUE", "storefront_service.operator_decisions")
	viper.SetDefault("SESSION_TTL_HOURS", 72)
	viper.SetDefault("SIGNUP_BONUS", "10.00")
	viper.SetDefault("REFERRAL_THRESHOLD", 5)
	viper.SetDefault("DISCOUNT_PERCENT", 50)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "storefront:rate_limit")
	viper.SetDefault("ORDER_RATE_LIMIT_PER_MINUTE", 20)
	viper.SetDefault("CLAIM_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "STOREFRONT_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("OPERATOR_DECISION_QUEUE")
	_ = viper.BindEnv("SESSION_SECRET")
	_ = viper.BindEnv("SESSION_TTL_HOURS")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "STOREFRONT_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("SIGNUP_BONUS")
	_ = viper.BindEnv("REFERRAL_THRESHOLD")
	_ = viper.BindEnv("DISCOUNT_PERCENT")
	_ = viper.BindEnv("ORDER_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CLAIM_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("STOREFRONT_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "storefront:rate_limit"
	}

	config.SignupBonus = strings.TrimSpace(config.SignupBonus)
	if config.SignupBonus == "" {
		config.SignupBonus = "10.00"
	} else if _, parseErr := strconv.ParseFloat(config.SignupBonus, 64); parseErr != nil {
		log.Printf("level=warn component=config msg=\"invalid SIGNUP_BONUS; using default\" value=%q err=%v", config.SignupBonus, parseErr)
		config.SignupBonus = "10.00"
	}

	if config.ReferralThreshold <= 0 {
		config.ReferralThreshold = 5
	}
	if config.DiscountPercent <= 0 || config.DiscountPercent > 100 {
		log.Printf("level=warn component=config msg=\"discount percent out of range; using default\" percent=%d", config.DiscountPercent)
		config.DiscountPercent = 50
	}
	if config.SessionTTLHours <= 0 {
		config.SessionTTLHours = 72
	}
	if config.OrderRateLimitPerMinute < 0 {
		config.OrderRateLimitPerMinute = 0
	}
	if config.ClaimRateLimitPerMinute < 0 {
		config.ClaimRateLimitPerMinute = 0
	}

	return
}
