package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses the sweep interval duration
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Two databases are configured: the
// relational store (DB_*) owning customers, rooms and reservations, and
// the authentication store (AUTH_DB_*) holding the RADIUS credential
// tables.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // relational database username
	DBPass         string // relational database password (optional)
	DBHost         string // relational database host address
	DBPort         string // relational database port number
	DBName         string // relational database name
	AuthDBUser     string // authentication-store username
	AuthDBPass     string // authentication-store password (optional)
	AuthDBHost     string // authentication-store host address
	AuthDBPort     string // authentication-store port number
	AuthDBName     string // authentication-store database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	SweepInterval  time.Duration // how often the expiry sweep runs
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.  The
// authentication store defaults to the relational store's credentials so
// a single-instance development setup needs no extra variables.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		SweepInterval:  duration("SWEEP_INTERVAL", 30*time.Second),
	}
	cfg.AuthDBUser = fallback("AUTH_DB_USER", cfg.DBUser)
	cfg.AuthDBPass = fallback("AUTH_DB_PASS", cfg.DBPass)
	cfg.AuthDBHost = fallback("AUTH_DB_HOST", cfg.DBHost)
	cfg.AuthDBPort = fallback("AUTH_DB_PORT", cfg.DBPort)
	cfg.AuthDBName = fallback("AUTH_DB_NAME", "radius")
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// fallback returns the environment value when set, otherwise the default.
func fallback(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// duration parses an optional duration variable, falling back on the
// default for unset or malformed values.
func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid duration for %s: %q, using %s", key, v, def)
		return def
	}
	return d
}
