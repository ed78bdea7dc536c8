package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// EnvironmentNames lists the managed target environments in display order.
var EnvironmentNames = []string{"dev", "test", "stage", "prod"}

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Metadata     DatabaseConfig
	Environments map[string]DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Queries      QueryCatalogConfig
	Approval     ApprovalConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// QueryCatalogConfig locates the predefined query catalog.
type QueryCatalogConfig struct {
	Path string
}

// ApprovalConfig bounds live-environment work during change processing.
type ApprovalConfig struct {
	EnvironmentTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Metadata = databaseConfig(v, "METADATA")
	cfg.Environments = make(map[string]DatabaseConfig, len(EnvironmentNames))
	for _, name := range EnvironmentNames {
		cfg.Environments[name] = databaseConfig(v, strings.ToUpper(name))
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Queries = QueryCatalogConfig{
		Path: v.GetString("QUERY_CATALOG_PATH"),
	}

	cfg.Approval = ApprovalConfig{
		EnvironmentTimeout: parseDuration(v.GetString("APPROVAL_ENV_TIMEOUT"), 15*time.Second),
	}

	return cfg, nil
}

func databaseConfig(v *viper.Viper, prefix string) DatabaseConfig {
	return DatabaseConfig{
		Host:         v.GetString(prefix + "_DB_HOST"),
		Port:         v.GetInt(prefix + "_DB_PORT"),
		User:         v.GetString(prefix + "_DB_USER"),
		Password:     v.GetString(prefix + "_DB_PASSWORD"),
		Name:         v.GetString(prefix + "_DB_NAME"),
		SSLMode:      v.GetString(prefix + "_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt(prefix + "_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt(prefix + "_DB_MAX_IDLE_CONNS"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	setDatabaseDefaults(v, "METADATA", "admindb_metadata")
	for _, name := range EnvironmentNames {
		setDatabaseDefaults(v, strings.ToUpper(name), fmt.Sprintf("appdata_%s", name))
	}

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "dbadmin-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QUERY_CATALOG_PATH", "./config/queries.json")
	v.SetDefault("APPROVAL_ENV_TIMEOUT", "15s")
}

func setDatabaseDefaults(v *viper.Viper, prefix, name string) {
	v.SetDefault(prefix+"_DB_HOST", "localhost")
	v.SetDefault(prefix+"_DB_PORT", 5432)
	v.SetDefault(prefix+"_DB_USER", "postgres")
	v.SetDefault(prefix+"_DB_PASSWORD", "postgres")
	v.SetDefault(prefix+"_DB_NAME", name)
	v.SetDefault(prefix+"_DB_SSL_MODE", "disable")
	v.SetDefault(prefix+"_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault(prefix+"_DB_MAX_IDLE_CONNS", 5)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
