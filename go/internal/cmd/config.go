package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"gopkg.in/yaml.v3"
)

const (
	publisherLog       = "log"
	publisherJetStream = "jetstream"
)

type Config struct {
	Clock struct {
		// Time controls offered to clients, as "<limit>+<increment>" in seconds
		Presets     []string `yaml:"presets"`
		FlagWorkers int      `yaml:"flag_workers"`
	} `yaml:"clock"`
	Publisher struct {
		Mode string `yaml:"mode"`
	} `yaml:"publisher"`
}

func defaultConfig() *Config {
	var config Config
	config.Clock.Presets = []string{"60+0", "180+0", "180+2", "300+3", "600+0", "600+5", "900+10", "1800+0"}
	config.Clock.FlagWorkers = 4
	config.Publisher.Mode = publisherLog
	return &config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults. An empty path yields the defaults.
// FLAG_WORKERS overrides the flag scheduler worker count from either source.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Clock.FlagWorkers = getEnvAsInt("FLAG_WORKERS", config.Clock.FlagWorkers)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if _, err := c.timeControls(); err != nil {
		return err
	}
	if c.Clock.FlagWorkers < 1 {
		return fmt.Errorf("flag_workers must be positive, got %d", c.Clock.FlagWorkers)
	}
	switch c.Publisher.Mode {
	case publisherLog, publisherJetStream:
		return nil
	default:
		return fmt.Errorf("unknown publisher mode %q", c.Publisher.Mode)
	}
}

func (c *Config) timeControls() ([]chessclock.Config, error) {
	controls := make([]chessclock.Config, 0, len(c.Clock.Presets))
	for _, preset := range c.Clock.Presets {
		control, ok := chessclock.ParseConfig(preset)
		if !ok {
			return nil, fmt.Errorf("invalid time control preset %q", preset)
		}
		controls = append(controls, control)
	}
	return controls, nil
}
