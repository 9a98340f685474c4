package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/contacts/pkg/config"
	"github.com/Skotchmaster/contacts/pkg/db"
)

type Config struct {
	HTTPAddr      string
	PublicBaseURL string
	LogLevel      string

	DBDriver    string
	DatabaseURL string

	JWTSecret    []byte
	JWTAlgorithm string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	BcryptCost   int

	SMTP SMTP
	S3   S3

	KafkaBrokers      []string
	KafkaUserTopic    string
	KafkaContactTopic string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	GravatarEnabled bool

	CORSOrigins        []string
	RateLimitPerMinute int

	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	StartTLS bool
	SSL      bool
}

type S3 struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PublicURL    string
	UsePathStyle bool
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return &Config{
		HTTPAddr:      pkgcfg.EnvDefault("HTTP_ADDR", ":8000"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		LogLevel:      pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    pkgcfg.EnvDefault("DB_DRIVER", db.DriverPostgres),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:    []byte(os.Getenv("JWT_SECRET")),
		JWTAlgorithm: pkgcfg.EnvDefault("JWT_ALGORITHM", "HS256"),
		AccessTTL:    pkgcfg.EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:   pkgcfg.EnvDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:   pkgcfg.EnvIntDefault("BCRYPT_COST", 0),

		SMTP: SMTP{
			Host:     os.Getenv("MAIL_SERVER"),
			Port:     pkgcfg.EnvIntDefault("MAIL_PORT", 465),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
			FromName: pkgcfg.EnvDefault("MAIL_FROM_NAME", "Contacts App"),
			StartTLS: pkgcfg.EnvBoolDefault("MAIL_STARTTLS", false),
			SSL:      pkgcfg.EnvBoolDefault("MAIL_SSL_TLS", true),
		},
		S3: S3{
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			Region:       pkgcfg.EnvDefault("S3_REGION", "us-east-1"),
			Bucket:       os.Getenv("S3_BUCKET"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			PublicURL:    os.Getenv("S3_PUBLIC_URL"),
			UsePathStyle: pkgcfg.EnvBoolDefault("S3_PATH_STYLE", true),
		},

		KafkaBrokers:      pkgcfg.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaUserTopic:    pkgcfg.EnvDefault("KAFKA_USER_TOPIC", "user_events"),
		KafkaContactTopic: pkgcfg.EnvDefault("KAFKA_CONTACT_TOPIC", "contact_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    pkgcfg.EnvDefault("ES_INDEX", "contacts"),

		GravatarEnabled: pkgcfg.EnvBoolDefault("GRAVATAR_ENABLED", true),

		CORSOrigins:        pkgcfg.CSV(pkgcfg.EnvDefault("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitPerMinute: pkgcfg.EnvIntDefault("RATE_LIMIT_PER_MINUTE", 10),

		Workers:     pkgcfg.EnvIntDefault("WORKERS", 4),
		QueueSize:   pkgcfg.EnvIntDefault("QUEUE_SIZE", 100),
		TaskTimeout: pkgcfg.EnvDurationDefault("TASK_TIMEOUT", 30*time.Second),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs,
		pkgcfg.NonEmpty(c.DatabaseURL, "DATABASE_URL"),
		pkgcfg.NonEmptyBytes(c.JWTSecret, "JWT_SECRET"),
	)
	if c.S3.Endpoint != "" {
		errs = append(errs, pkgcfg.NonEmpty(c.S3.Bucket, "S3_BUCKET"))
	}
	if c.SMTP.Host != "" {
		errs = append(errs, pkgcfg.NonEmpty(c.SMTP.From, "MAIL_FROM"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("WORKERS must be positive"))
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}
