package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "time"    // time parses timeouts

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"
)

// DBConfig groups the MySQL connection settings shared by both services.
type DBConfig struct {
    User string // database username
    Pass string // database password (optional)
    Host string // database host address
    Port string // database port number
    Name string // database name
}

// BookingConfig holds the runtime configuration of the booking service.
// Each field corresponds to an environment variable.  Timeouts bound the
// two blocking remote calls made while reserving: the catalog lookup and
// the broker publish confirmation.
type BookingConfig struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    LogLevel       string        // zerolog level name
    DB             DBConfig      // booking store
    JWTSecret      string        // secret used to verify bearer tokens
    CatalogURL     string        // base URL of the catalog service
    CatalogTimeout time.Duration // deadline for a single catalog lookup
    PublishTimeout time.Duration // deadline for a publish confirmation
    CacheTimeout   time.Duration // deadline for a single counter script
}

// CatalogConfig holds the runtime configuration of the catalog service.
type CatalogConfig struct {
    Env       string   // application environment
    Port      string   // HTTP port to listen on
    LogLevel  string   // zerolog level name
    DB        DBConfig // authoritative catalog store
    JWTSecret string   // verifies admin tokens on the write endpoints
}

// LoadDotEnv loads a .env file from the working directory when one exists.
// Variables already present in the environment win.
func LoadDotEnv() {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Warn().Err(err).Msg("config: could not read .env file")
    }
}

// LoadBooking reads the booking service configuration.  Required variables
// are enforced by must() and missing values stop the process.
func LoadBooking() BookingConfig {
    return BookingConfig{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        LogLevel:       envStr("LOG_LEVEL", "info"),
        DB:             loadDB(),
        JWTSecret:      must("JWT_SECRET"),
        CatalogURL:     must("CATALOG_URL"),
        CatalogTimeout: envDur("CATALOG_TIMEOUT", 3*time.Second),
        PublishTimeout: envDur("PUBLISH_TIMEOUT", 5*time.Second),
        CacheTimeout:   envDur("CACHE_OP_TIMEOUT", time.Second),
    }
}

// LoadCatalog reads the catalog service configuration.
func LoadCatalog() CatalogConfig {
    return CatalogConfig{
        Env:       must("APP_ENV"),
        Port:      must("APP_PORT"),
        LogLevel:  envStr("LOG_LEVEL", "info"),
        DB:        loadDB(),
        JWTSecret: must("JWT_SECRET"),
    }
}

// TokenConfig holds what the operator token command needs to sign a
// bearer token both services accept.
type TokenConfig struct {
    JWTSecret string        // must match the services' JWT_SECRET
    TTL       time.Duration // lifetime of the issued token
}

// LoadToken reads the token command configuration.
func LoadToken() TokenConfig {
    return TokenConfig{
        JWTSecret: must("JWT_SECRET"),
        TTL:       envDur("TOKEN_TTL", time.Hour),
    }
}

func loadDB() DBConfig {
    return DBConfig{
        User: must("DB_USER"),
        Pass: os.Getenv("DB_PASS"), // empty allowed
        Host: must("DB_HOST"),
        Port: must("DB_PORT"),
        Name: must("DB_NAME"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatal().Str("key", key).Msg("missing required env var")
    }
    return v
}

