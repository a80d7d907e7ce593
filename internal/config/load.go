package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// Load reads, normalizes and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a config from raw yaml, applying defaults and environment
// overrides before validation.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv honours the environment variables the deployment scripts set for
// the browser hub and the image backend.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("SELENOID_URL")); v != "" {
		c.Capture.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_URL")); v != "" {
		c.Delivery.HTTP.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_IMAGE_ENDPOINT")); v != "" {
		c.Delivery.HTTP.ImageEndpoint = v
	}
}

func (c *Config) normalize() {
	c.Run.JobType = strings.ToLower(strings.TrimSpace(c.Run.JobType))
	c.Delivery.Backend = strings.ToLower(strings.TrimSpace(c.Delivery.Backend))
	c.Delivery.Ledger.Driver = strings.ToLower(strings.TrimSpace(c.Delivery.Ledger.Driver))
	c.Registry.Watch.Mode = strings.ToLower(strings.TrimSpace(c.Registry.Watch.Mode))

	format := strings.TrimSpace(c.Capture.ImageFormat)
	if format != "" && !strings.HasPrefix(format, ".") {
		format = "." + format
	}
	c.Capture.ImageFormat = strings.ToLower(format)

	cameras := c.Registry.Cameras[:0]
	for _, id := range c.Registry.Cameras {
		if id = strings.TrimSpace(id); id != "" {
			cameras = append(cameras, id)
		}
	}
	c.Registry.Cameras = cameras
}
