package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// config holds CLI settings, loadable from a YAML file:
//
//	device: hostmem
//	log_level: debug
//	iterations: 100
type config struct {
	Device     string `yaml:"device"`
	LogLevel   string `yaml:"log_level"`
	Iterations int    `yaml:"iterations"`
}

func defaultConfig() config {
	return config{
		Device:     "hostmem",
		LogLevel:   "info",
		Iterations: 10,
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = defaultConfig().Iterations
	}
	return cfg, nil
}

func (c config) buildLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = level
	return zc.Build()
}
