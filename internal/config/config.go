package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ImageStoreLocal = "local"
	ImageStoreS3    = "s3"

	ExtractorDeepFace = "deepface"
	ExtractorMock     = "mock"

	// PostgresEmbeddingDim is the width of the faces.embedding vector column.
	PostgresEmbeddingDim = 512
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogFile     string `envconfig:"LOG_FILE"`

	// Database
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"data/facelocker.db"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// Image storage
	ImageStore string `envconfig:"IMAGE_STORE" default:"local"`
	FacesDir   string `envconfig:"FACES_DIR" default:"data/faces"`
	S3Bucket   string `envconfig:"S3_BUCKET"`
	S3Prefix   string `envconfig:"S3_PREFIX" default:"faces/"`
	AWSRegion  string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3Endpoint string `envconfig:"S3_ENDPOINT"`

	// Extractor
	Extractor          string `envconfig:"EXTRACTOR" default:"deepface"`
	DeepFaceURL        string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel      string `envconfig:"DEEPFACE_MODEL" default:"Facenet512"`
	DeepFaceDetector   string `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`
	ExtractorSerialize bool   `envconfig:"EXTRACTOR_SERIALIZE" default:"false"`

	// Matching
	Threshold    float64 `envconfig:"FACE_COS_THRESHOLD" default:"0.75"`
	TopK         int     `envconfig:"FACE_TOP_K" default:"5"`
	EmbeddingDim int     `envconfig:"EMBEDDING_DIM" default:"512"`

	// Security
	APIKey             string `envconfig:"API_KEY"`
	RecognizeRateLimit int    `envconfig:"RECOGNIZE_RATE_LIMIT" default:"60"`

	// Events
	MQTTBroker   string `envconfig:"MQTT_BROKER"`
	MQTTUsername string `envconfig:"MQTT_USERNAME"`
	MQTTPassword string `envconfig:"MQTT_PASSWORD"`
	SiteID       string `envconfig:"SITE_ID" default:"site-001"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Threshold < -1 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("FACE_COS_THRESHOLD must be in [-1,1], got %v", c.Threshold))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("FACE_TOP_K must be >= 1, got %d", c.TopK))
	}
	if c.EmbeddingDim < 1 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIM must be >= 1, got %d", c.EmbeddingDim))
	}

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
		if c.EmbeddingDim != PostgresEmbeddingDim {
			errs = append(errs, fmt.Errorf("EMBEDDING_DIM must be %d with the postgres driver", PostgresEmbeddingDim))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.ImageStore {
	case ImageStoreLocal:
		if c.FacesDir == "" {
			errs = append(errs, errors.New("FACES_DIR is required for the local image store"))
		}
	case ImageStoreS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 image store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore))
	}

	switch c.Extractor {
	case ExtractorDeepFace:
		if c.DeepFaceURL == "" {
			errs = append(errs, errors.New("DEEPFACE_URL is required for the deepface extractor"))
		}
	case ExtractorMock:
	default:
		errs = append(errs, fmt.Errorf("unknown EXTRACTOR %q", c.Extractor))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
