package utils

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	AppPort string `yaml:"APP_PORT"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// JWT
	JWTSecret     string `yaml:"JWT_SECRET"`
	JWTTTLMinutes string `yaml:"JWT_TTL_MINUTES"`

	// Mailing configuration
	AppURL           string `yaml:"APP_URL"`
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`

	// AWS S3 configuration
	AWSS3Bucket   string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region   string `yaml:"AWS_S3_REGION"`
	AWSAccessKey  string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey  string `yaml:"AWS_SECRET_KEY"`
	AWSS3Endpoint string `yaml:"AWS_S3_ENDPOINT"`

	// Logging
	LogLevel string `yaml:"LOG_LEVEL"`
	LogFile  string `yaml:"LOG_FILE"`

	// Recipe rules
	MinIngredientAmount string `yaml:"MIN_INGREDIENT_AMOUNT"`
	MinCookingTime      string `yaml:"MIN_COOKING_TIME"`
	ImageMaxWidth       string `yaml:"IMAGE_MAX_WIDTH"`
	RateLimitPerSecond  string `yaml:"RATE_LIMIT_PER_SECOND"`
}

var (
	config     Config
	configOnce sync.Once
)

// LoadConfig reads config.yaml (or $CONFIG_PATH) once. Values from the
// environment, including a .env file, take precedence over the file.
func LoadConfig() {
	configOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Error reading .env file: %s\n", err)
		}

		path := os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "config.yaml"
		}

		file, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Error reading YAML file: %s\n", err)
			return
		}

		if err = yaml.Unmarshal(file, &config); err != nil {
			log.Printf("Error parsing YAML file: %s\n", err)
		}
	})
}

func GetConfig(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	switch key {
	case "APP_PORT":
		return config.AppPort
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "JWT_SECRET":
		return config.JWTSecret
	case "JWT_TTL_MINUTES":
		return config.JWTTTLMinutes
	case "APP_URL":
		return config.AppURL
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "AWS_S3_ENDPOINT":
		return config.AWSS3Endpoint
	case "LOG_LEVEL":
		return config.LogLevel
	case "LOG_FILE":
		return config.LogFile
	case "MIN_INGREDIENT_AMOUNT":
		return config.MinIngredientAmount
	case "MIN_COOKING_TIME":
		return config.MinCookingTime
	case "IMAGE_MAX_WIDTH":
		return config.ImageMaxWidth
	case "RATE_LIMIT_PER_SECOND":
		return config.RateLimitPerSecond
	default:
		return ""
	}
}

// GetIntConfig returns fallback when the key is unset or not an integer.
func GetIntConfig(key string, fallback int) int {
	value := GetConfig(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using %d\n", key, value, fallback)
		return fallback
	}
	return n
}
