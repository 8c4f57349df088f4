package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DatabasePath   string   `mapstructure:"database_path"`
	ServerPort     string   `mapstructure:"server_port"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
}

// Load reads the configuration from a YAML file, with FLUXARR_* environment
// variables taking precedence.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("fluxarr")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Fatalf("Error reading config file: %v", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.DatabasePath == "" {
		config.DatabasePath = "data/fluxarr.db"
	}
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file or FLUXARR_JWT_SECRET")
	}

	return &config
}
