package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
)

// loadConfig reads the config file when present and overlays it on the
// defaults. A missing file is not an error; an invalid one is.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	path := viper.GetString("config")
	if path == "" {
		path = cfgFile
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return config.Config{}, fmt.Errorf("stat config: %w", err)
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := config.ValidateSettings(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// apiKey resolves the model API key from the environment.
func apiKey() (string, error) {
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("GEMINI_API_KEY is not set")
}
