// Package config loads runtime configuration from the environment, an
// optional .env file and an optional config.yaml.
//
// PRECEDENCE (highest first):
//  1. Real environment variables, e.g. DIET_SERVER_PORT=9090
//  2. Values from .env (only for variables not already set)
//  3. config.yaml in the working directory
//  4. Defaults set in Load
//
// Every key is namespaced with the DIET_ prefix and uses "_" where the
// config key uses ".", so auth.jwtsecret is read from DIET_AUTH_JWTSECRET.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MinJWTSecretLength mirrors auth.NewTokenService's lower bound so a bad
// secret fails at startup with a config error, not deep inside wiring.
const MinJWTSecretLength = 16

// Config holds application level configuration.
type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret    string
		CookieSecure bool
		BcryptCost   int
	}
	Log struct {
		Level string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	GitHub struct {
		ClientID     string
		ClientSecret string
		CallbackURL  string
	}
}

// Load reads configuration. envFiles are optional .env paths; when none are
// given ".env" in the working directory is tried. Missing files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv.Load never overrides variables that are already set.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvPrefix("DIET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees env values for keys viper already knows about,
	// so every key needs a default here.
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "data/diet.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("github.clientid", "")
	v.SetDefault("github.clientsecret", "")
	v.SetDefault("github.callbackurl", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/users/github/callback", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that would make the server unusable.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("config: database.path is required")
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("config: auth.jwtsecret must be at least %d characters (set DIET_AUTH_JWTSECRET)", MinJWTSecretLength)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("config: auth.bcryptcost %d out of range 4..31", c.Auth.BcryptCost)
	}
	return nil
}

// GitHubEnabled is true when both OAuth credentials are present.
func (c Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

// SlogLevel maps log.level onto a slog.Level. Unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
