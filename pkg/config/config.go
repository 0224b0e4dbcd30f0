package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable read by Load.
	EnvPrefix = "craftora"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Firestore FirestoreConfig
	ImageHost ImageHostConfig
	Media     MediaConfig
	Drafts    DraftsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.ImageHost.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnvOrDefault reads an environment variable outside the envconfig-managed
// tree, for knobs that have to be consulted before Load runs.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTORA_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRAFTORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type JWTConfig struct {
	Secret string `envconfig:"CRAFTORA_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"CRAFTORA_JWT_ISSUER" required:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTORA_REDIS_URL" required:"true"`
	Password     string        `envconfig:"CRAFTORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FirestoreConfig struct {
	ProjectID       string `envconfig:"CRAFTORA_FIRESTORE_PROJECT_ID" required:"true"`
	CredentialsFile string `envconfig:"CRAFTORA_FIRESTORE_CREDENTIALS_FILE"`
}

// ImageHostConfig selects and configures the external image host. Provider is
// either "http" (multipart endpoint returning {success,data:{url}}) or
// "cloudinary".
type ImageHostConfig struct {
	Provider      string        `envconfig:"CRAFTORA_IMAGE_HOST_PROVIDER" default:"http"`
	EndpointURL   string        `envconfig:"CRAFTORA_IMAGE_HOST_ENDPOINT"`
	APIKey        string        `envconfig:"CRAFTORA_IMAGE_HOST_API_KEY"`
	CloudinaryURL string        `envconfig:"CRAFTORA_CLOUDINARY_URL"`
	UploadTimeout time.Duration `envconfig:"CRAFTORA_IMAGE_HOST_UPLOAD_TIMEOUT" default:"30s"`
}

func (c ImageHostConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "http":
		if c.EndpointURL == "" {
			return fmt.Errorf("CRAFTORA_IMAGE_HOST_ENDPOINT is required for the http provider")
		}
	case "cloudinary":
		if c.CloudinaryURL == "" {
			return fmt.Errorf("CRAFTORA_CLOUDINARY_URL is required for the cloudinary provider")
		}
	default:
		return fmt.Errorf("unknown image host provider %q", c.Provider)
	}
	return nil
}

type MediaConfig struct {
	MaxUploadBytes int64 `envconfig:"CRAFTORA_MEDIA_MAX_UPLOAD_BYTES" default:"1048576"`
	MaxDimension   int   `envconfig:"CRAFTORA_MEDIA_MAX_DIMENSION" default:"1920"`
	JPEGQuality    int   `envconfig:"CRAFTORA_MEDIA_JPEG_QUALITY" default:"80"`
}

type DraftsConfig struct {
	TTL            time.Duration `envconfig:"CRAFTORA_DRAFT_TTL" default:"2h"`
	SweepInterval  time.Duration `envconfig:"CRAFTORA_DRAFT_SWEEP_INTERVAL" default:"5m"`
	IdempotencyTTL time.Duration `envconfig:"CRAFTORA_DRAFT_IDEMPOTENCY_TTL" default:"24h"`
}
