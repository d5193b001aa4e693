// Package config defines process configuration and its loading order.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the SQLite database file.
	DataDir string `koanf:"data_dir"`

	// Redis connection for distributed rate limiting. Empty addr
	// falls back to in-memory limiting.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// JWTSecret signs member session tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// ScorerBackend selects the projection model: linear or heuristic.
	ScorerBackend string `koanf:"scorer_backend"`

	// ModelTTLMinutes bounds the age of the fitted model.
	ModelTTLMinutes int `koanf:"model_ttl_minutes"`

	// MinTrainingRows is the snapshot size below which no model is fitted.
	MinTrainingRows int `koanf:"min_training_rows"`

	// ResponseCacheTTLSeconds is the TTL of the org snapshot response cache.
	ResponseCacheTTLSeconds int `koanf:"response_cache_ttl_seconds"`

	// IPLimitPerMin caps requests per client IP per minute.
	IPLimitPerMin int `koanf:"ip_limit_per_min"`

	// RetentionDays bounds how long raw check-ins are kept.
	RetentionDays int `koanf:"retention_days"`

	// CORSOrigins lists the allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":8080",
		DataDir:                 "./data",
		RedisDB:                 0,
		JWTSecret:               "dev-secret-change-me",
		ScorerBackend:           "linear",
		ModelTTLMinutes:         20,
		MinTrainingRows:         5,
		ResponseCacheTTLSeconds: 60,
		IPLimitPerMin:           60,
		RetentionDays:           365,
		CORSOrigins:             []string{"http://localhost:5173"},
	}
}
