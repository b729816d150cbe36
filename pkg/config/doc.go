// Package config loads typed configuration from environment variables.
//
// Structs declare their variables with caarlos0/env tags. Load reads an
// optional dotenv file (joho/godotenv), parses the environment into the
// struct and caches the result per type and prefix:
//
//	type AppConfig struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg AppConfig
//	config.MustLoad(&cfg, config.WithPrefix("NOTIFY_"))
package config
