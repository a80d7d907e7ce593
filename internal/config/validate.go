package config

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/camrelay/internal/errs"
)

// Validate ensures the configuration is usable. Every failure wraps
// errs.ErrConfig.
func (c *Config) Validate() error {
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRun() error {
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errs.Configf("storage.path must be set")
	}
	switch c.Run.JobType {
	case JobParallel, JobSequential:
	default:
		return errs.Configf("run.jobType must be %q or %q, got %q", JobParallel, JobSequential, c.Run.JobType)
	}
	if c.Run.MaxRunTime < 0 {
		return errs.Configf("run.maxRunTime must be >= 0")
	}
	if c.Run.AlignmentMinutes < 1 || c.Run.AlignmentMinutes > 60 {
		return errs.Configf("run.alignmentMinutes must be between 1 and 60, got %d", c.Run.AlignmentMinutes)
	}
	if c.Run.StartupOverhead < 0 {
		return errs.Configf("run.startupOverhead must be >= 0")
	}
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		return errs.Configf("run.timezone %q: %v", c.Run.Timezone, err)
	}
	c.location = loc
	return nil
}

func (c *Config) validateCapture() error {
	if strings.TrimSpace(c.Capture.Endpoint) == "" {
		return errs.Configf("capture.endpoint must be set (or SELENOID_URL)")
	}
	if len(c.Capture.ImageFormat) < 2 {
		return errs.Configf("capture.imageFormat must be an extension such as .png")
	}
	if c.Capture.PhotoInterval < 0 {
		return errs.Configf("capture.photoInterval must be >= 0")
	}
	if c.Capture.CameraInterval <= 0 {
		return errs.Configf("capture.cameraInterval must be > 0")
	}
	if c.Capture.LoadWait < 0 || c.Capture.TriggerWait < 0 || c.Capture.PlayWait < 0 {
		return errs.Configf("capture waits must be >= 0")
	}
	return nil
}

func (c *Config) validateRegistry() error {
	if strings.TrimSpace(c.Registry.Path) == "" {
		return errs.Configf("registry.path must be set")
	}
	if len(c.Registry.Cameras) == 0 {
		return errs.Configf("registry.cameras must list at least one camera")
	}
	seen := make(map[string]struct{}, len(c.Registry.Cameras))
	for _, id := range c.Registry.Cameras {
		if _, dup := seen[id]; dup {
			return errs.Configf("registry.cameras lists %q twice", id)
		}
		seen[id] = struct{}{}
	}
	if c.Parallel() && len(c.Registry.Cameras) > MaxParallelCameras {
		return errs.Configf("parallel mode supports at most %d cameras, got %d", MaxParallelCameras, len(c.Registry.Cameras))
	}
	switch c.Registry.Watch.Mode {
	case "auto", "poll", "fsnotify", "off":
	default:
		return errs.Configf("registry.watch.mode %q is not supported", c.Registry.Watch.Mode)
	}
	if c.Registry.Watch.Mode != "off" && c.Registry.Watch.PollInterval <= 0 {
		return errs.Configf("registry.watch.pollInterval must be > 0")
	}
	return nil
}

func (c *Config) validateDelivery() error {
	switch c.Delivery.Backend {
	case "http":
		// Only parallel rounds upload, so a missing backend is fatal there alone.
		if c.Parallel() && (c.Delivery.HTTP.ServerURL == "" || c.Delivery.HTTP.ImageEndpoint == "") {
			return errs.Configf("delivery.http.serverURL and imageEndpoint are required in parallel mode (SERVER_URL, SERVER_IMAGE_ENDPOINT)")
		}
		if c.Delivery.OAuth2.TokenURL != "" && c.Delivery.OAuth2.ClientID == "" {
			return errs.Configf("delivery.oauth2.clientID is required when tokenURL is set")
		}
	case "s3":
		if c.Parallel() && (c.Delivery.S3.Endpoint == "" || c.Delivery.S3.Bucket == "") {
			return errs.Configf("delivery.s3.endpoint and bucket are required in parallel mode")
		}
	default:
		return errs.Configf("delivery.backend must be \"http\" or \"s3\", got %q", c.Delivery.Backend)
	}

	switch c.Delivery.Ledger.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Delivery.Ledger.DSN == "" {
			return errs.Configf("delivery.ledger.dsn is required for postgres")
		}
	default:
		return errs.Configf("delivery.ledger.driver %q is not supported", c.Delivery.Ledger.Driver)
	}
	return nil
}

func (c *Config) validateRetention() error {
	if !c.Retention.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.Retention.Schedule); err != nil {
		return errs.Configf("retention.schedule %q: %v", c.Retention.Schedule, err)
	}
	return nil
}
