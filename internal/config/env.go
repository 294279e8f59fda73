package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".foodbridge/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"foodbridge/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-southeast-1"`
}

type AuthEnv struct {
	// JWTSecret signs and verifies caller tokens (HS256). Tokens carry the
	// caller id in "sub" and the role in "role".
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

type GeoEnv struct {
	// GeocoderBaseURL points at a Nominatim-compatible endpoint. Leave
	// empty to disable geocoding (addresses then pass through as given).
	GeocoderBaseURL string `envconfig:"GEOCODER_BASE_URL"`
	GeocoderEmail   string `envconfig:"GEOCODER_EMAIL"`
}

type CatalogEnv struct {
	// OrganizationsFile is the YAML catalog of distribution centers.
	OrganizationsFile string `envconfig:"ORGANIZATIONS_FILE" default:".foodbridge/organizations.yaml"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:ops@foodbridge.local"`
}

type Env struct {
	BaseEnv
	StorageEnv
	AuthEnv
	GeoEnv
	CatalogEnv
	VAPIDEnv
}

const namespace = "FOODBRIDGE"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func AuthEnvFromEnv(env *Env) *AuthEnv {
	return &env.AuthEnv
}

func GeoEnvFromEnv(env *Env) *GeoEnv {
	return &env.GeoEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
