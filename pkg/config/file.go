package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML overlay accepted through CONFIG_FILE.
type FileConfig struct {
	Environment string `yaml:"environment"`
	Addr        string `yaml:"addr"`
	LogLevel    string `yaml:"logLevel"`
	Store       struct {
		Backend       string `yaml:"backend"`
		DatabaseURL   string `yaml:"databaseURL"`
		MigrationsDir string `yaml:"migrationsDir"`
	} `yaml:"store"`
	Auth struct {
		Required              bool   `yaml:"required"`
		JWTSecret             string `yaml:"jwtSecret"`
		AccessTokenTTLMinutes int    `yaml:"accessTokenTTLMinutes"`
	} `yaml:"auth"`
	Notary struct {
		Runner         string `yaml:"runner"`
		Command        string `yaml:"command"`
		ProbeCommand   string `yaml:"probeCommand"`
		Workdir        string `yaml:"workdir"`
		Container      string `yaml:"container"`
		DockerHost     string `yaml:"dockerHost"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"notary"`
	RateLimit struct {
		PerMinute     int    `yaml:"perMinute"`
		RedisAddr     string `yaml:"redisAddr"`
		RedisPassword string `yaml:"redisPassword"`
		RedisDB       int    `yaml:"redisDB"`
	} `yaml:"rateLimit"`
}

// LoadFile reads a YAML config file. An empty path yields a zero FileConfig.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
