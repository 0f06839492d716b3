package config

import (
	"os"
	"strconv"
)

type RewardServiceConfig struct {
	Port        string
	APIKey      string
	PostgresCfg PostgresConfig
	RabbitMQCfg RabbitMQConfig
	RedisCfg    RedisConfig
	MinioCfg    MinioConfig
	RewardCfg   RewardConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MinioConfig struct {
	MinioURL         string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioLocation    string
	MinioSecure      string
	MinioResourceURL string
}

// RewardConfig holds the tunable reward program parameters. Point amounts
// and window sizes default to the program rules and can be overridden per
// environment.
type RewardConfig struct {
	RegistrationPoints  int
	PlantingPhotoPoints int
	WateringPoints      int
	HealthScanPoints    int
	ScanWindowDays      int
	ScanWindowLimit     int
	DefaultRadiusMeters float64
	CoinConversionRate  int
	MinAccountAgeDays   int
}

func New() *RewardServiceConfig {
	return &RewardServiceConfig{
		Port:   getEnvOrDefault("PORT", "8086"),
		APIKey: getEnvOrDefault("API_KEY", ""),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "reward_service"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		MinioCfg: MinioConfig{
			MinioURL:         getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9407"),
			MinioAccessKey:   getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey:   getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:    getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:      getEnvOrDefault("MINIO_SECURE", "false"),
			MinioResourceURL: getEnvOrDefault("MINIO_RESOURCE_URL", "http://localhost:9407/"),
		},
		RewardCfg: RewardConfig{
			RegistrationPoints:  getEnvOrDefaultInt("REWARD_REGISTRATION_POINTS", 30),
			PlantingPhotoPoints: getEnvOrDefaultInt("REWARD_PLANTING_PHOTO_POINTS", 20),
			WateringPoints:      getEnvOrDefaultInt("REWARD_WATERING_POINTS", 5),
			HealthScanPoints:    getEnvOrDefaultInt("REWARD_HEALTH_SCAN_POINTS", 5),
			ScanWindowDays:      getEnvOrDefaultInt("SCAN_WINDOW_DAYS", 7),
			ScanWindowLimit:     getEnvOrDefaultInt("SCAN_WINDOW_LIMIT", 2),
			DefaultRadiusMeters: getEnvOrDefaultFloat("LOCATION_DEFAULT_RADIUS_METERS", 50),
			CoinConversionRate:  getEnvOrDefaultInt("COIN_CONVERSION_RATE", 10),
			MinAccountAgeDays:   getEnvOrDefaultInt("COIN_MIN_ACCOUNT_AGE_DAYS", 180),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
