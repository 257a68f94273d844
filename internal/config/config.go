// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Every variable is optional; the zero environment
// starts a server on :8080 that serves /hello and the actuator endpoints.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	AppName         string        // name reported by /actuator/info
	AppDescription  string        // description reported by /actuator/info
	LogLevel        string        // debug, info, warn, error or off
	ShutdownTimeout time.Duration // grace period for in-flight requests on shutdown

	ShowDetails   bool          // include health components in /actuator/health
	HealthTimeout time.Duration // per-indicator timeout for health checks

	DB       DBConfig // optional MySQL health target
	RabbitMQ string   // optional AMQP URL for the rabbit health indicator
}

// DBConfig describes the optional MySQL connection.  Host is empty when no
// database is configured.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Enabled reports whether a database host was configured.
func (d DBConfig) Enabled() bool { return d.Host != "" }

// Load reads an optional .env file and then builds a Config from the
// environment.  Variables already present in the environment win over the
// file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}
	return Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		AppName:         envStr("APP_NAME", "hello-actuator"),
		AppDescription:  envStr("APP_DESCRIPTION", "Greeting service with actuator endpoints"),
		LogLevel:        strings.ToLower(envStr("LOG_LEVEL", "info")),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		ShowDetails:     !strings.EqualFold(envStr("ACTUATOR_SHOW_DETAILS", "always"), "never"),
		HealthTimeout:   envDur("ACTUATOR_HEALTH_TIMEOUT", 2*time.Second),
		DB: DBConfig{
			User: envStr("DB_USER", "root"),
			Pass: os.Getenv("DB_PASS"),
			Host: os.Getenv("DB_HOST"),
			Port: envStr("DB_PORT", "3306"),
			Name: os.Getenv("DB_NAME"),
		},
		RabbitMQ: rabbitURL(),
	}
}

// rabbitURL prefers RABBITMQ_URL and falls back to AMQP_URL.  Unlike a
// publisher, a health check has no sensible localhost default, so an empty
// result disables the indicator.
func rabbitURL() string {
	if u := os.Getenv("RABBITMQ_URL"); u != "" {
		return u
	}
	return os.Getenv("AMQP_URL")
}
