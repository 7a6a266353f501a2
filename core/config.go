package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		RollbarToken string

		API      APIConfig
		Session  SessionConfig
		Server   ServerConfig
		Database DatabaseConfig
		Email    EmailConfig
	}

	// APIConfig configures the portal API client.
	APIConfig struct {
		BaseURL     string
		Timeout     time.Duration
		RefreshSkew time.Duration // refresh the access token when it expires within this window
	}

	// SessionConfig selects where the session keys are persisted.
	SessionConfig struct {
		Backend  string // file (default), memory, redis
		Path     string
		RedisURL string
		RedisKey string
	}

	// ServerConfig configures the development API server.
	ServerConfig struct {
		Address                   string
		Host                      string
		SecretKey                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		MediaDir                  string
		PasswordResetTimeout      time.Duration
	}

	DatabaseConfig struct {
		URL string // empty: in-memory storage
	}

	// EmailConfig configures the outgoing mail of the development API server.
	EmailConfig struct {
		FromName       string
		FromAddress    string
		SendgridAPIKey string // empty: print emails to the log
	}
)

const (
	SessionBackendFile   = "file"
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV by default, TEST, PROD) and thereby the env prefix
// and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Training Portal")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("api.baseUrl", "http://localhost:8000")
	conf.SetDefault("api.timeout", 30*time.Second)
	conf.SetDefault("api.refreshSkew", time.Minute)

	conf.SetDefault("session.backend", SessionBackendFile)
	conf.SetDefault("session.path", defaultSessionPath())
	conf.SetDefault("session.redisUrl", "redis://localhost:6379/0")
	conf.SetDefault("session.redisKey", "portal:session")

	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.secretKey", "k4$w9-dev-only-3n!x8#p2@qz7l0(m)v5r")
	conf.SetDefault("server.jwtExpirationDelta", 15*time.Minute)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.mediaDir", filepath.Join(os.TempDir(), "portal-media"))
	conf.SetDefault("server.passwordResetTimeout", 3*24*time.Hour)

	conf.SetDefault("database.url", "")

	conf.SetDefault("email.fromName", "Training Portal")
	conf.SetDefault("email.fromAddress", "no-reply@portal.local")
	conf.SetDefault("email.sendgridApiKey", "")

	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		RollbarToken: conf.GetString("rollbarToken"),
		API: APIConfig{
			BaseURL:     strings.TrimRight(conf.GetString("api.baseUrl"), "/"),
			Timeout:     conf.GetDuration("api.timeout"),
			RefreshSkew: conf.GetDuration("api.refreshSkew"),
		},
		Session: SessionConfig{
			Backend:  strings.ToLower(conf.GetString("session.backend")),
			Path:     conf.GetString("session.path"),
			RedisURL: conf.GetString("session.redisUrl"),
			RedisKey: conf.GetString("session.redisKey"),
		},
		Server: ServerConfig{
			Address:                   conf.GetString("server.address"),
			Host:                      conf.GetString("server.host"),
			SecretKey:                 conf.GetString("server.secretKey"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			MediaDir:                  conf.GetString("server.mediaDir"),
			PasswordResetTimeout:      conf.GetDuration("server.passwordResetTimeout"),
		},
		Database: DatabaseConfig{
			URL: conf.GetString("database.url"),
		},
		Email: EmailConfig{
			FromName:       conf.GetString("email.fromName"),
			FromAddress:    conf.GetString("email.fromAddress"),
			SendgridAPIKey: conf.GetString("email.sendgridApiKey"),
		},
	}
}

// DefaultFromEmail is the sender of the emails of the development API server.
func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.Email.FromName, Address: c.Email.FromAddress}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "training-portal", "session.json")
}
