// Package config loads the camrelay run configuration from yaml.
package config

import "time"

// MaxParallelCameras bounds how many cameras a parallel round may capture.
const MaxParallelCameras = 5

const (
	JobParallel   = "parallel"
	JobSequential = "sequential"
)

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Run       RunConfig       `yaml:"run"`
	Capture   CaptureConfig   `yaml:"capture"`
	Registry  RegistryConfig  `yaml:"registry"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`

	location *time.Location
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type RunConfig struct {
	JobType          string        `yaml:"jobType"`          // "parallel", "sequential"
	MaxRunTime       time.Duration `yaml:"maxRunTime"`       // e.g. 8h
	AlignmentMinutes int           `yaml:"alignmentMinutes"` // rounds start on minutes divisible by this
	// StartupOverhead is subtracted from every alignment sleep to absorb the
	// measured time a browser session needs before it can take a screenshot.
	StartupOverhead time.Duration `yaml:"startupOverhead"`
	Timezone        string        `yaml:"timezone"`
}

type CaptureConfig struct {
	Endpoint       string        `yaml:"endpoint"` // WebDriver hub; SELENOID_URL overrides
	Browser        string        `yaml:"browser"`
	EnableVNC      bool          `yaml:"enableVNC"`
	ImageFormat    string        `yaml:"imageFormat"` // ".png", ".jpg"
	PhotoInterval  time.Duration `yaml:"photoInterval"`
	CameraInterval time.Duration `yaml:"cameraInterval"`
	LoadWait       time.Duration `yaml:"loadWait"`
	TriggerWait    time.Duration `yaml:"triggerWait"`
	PlayWait       time.Duration `yaml:"playWait"`
}

type RegistryConfig struct {
	Path    string      `yaml:"path"`
	Cameras []string    `yaml:"cameras"`
	Watch   WatchConfig `yaml:"watch"`
}

type WatchConfig struct {
	Mode            string        `yaml:"mode"` // "auto", "poll", "fsnotify", "off"
	PollInterval    time.Duration `yaml:"pollInterval"`
	DebounceWindow  time.Duration `yaml:"debounceWindow"`
	StabilityWindow time.Duration `yaml:"stabilityWindow"`
}

type DeliveryConfig struct {
	Backend string       `yaml:"backend"` // "http", "s3"
	HTTP    HTTPConfig   `yaml:"http"`
	OAuth2  OAuth2Config `yaml:"oauth2"`
	S3      S3Config     `yaml:"s3"`
	Ledger  LedgerConfig `yaml:"ledger"`
}

type HTTPConfig struct {
	ServerURL     string        `yaml:"serverURL"`     // SERVER_URL overrides
	ImageEndpoint string        `yaml:"imageEndpoint"` // SERVER_IMAGE_ENDPOINT overrides
	Timeout       time.Duration `yaml:"timeout"`
}

// OAuth2Config enables client-credentials bearer tokens on HTTP uploads when
// TokenURL is set.
type OAuth2Config struct {
	TokenURL     string   `yaml:"tokenURL"`
	ClientID     string   `yaml:"clientID"`
	ClientSecret string   `yaml:"clientSecret"`
	Scopes       []string `yaml:"scopes"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"useSSL"`
}

type LedgerConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres", "none"
	DSN    string `yaml:"dsn"`    // sqlite defaults to <storage>/ledger.db
}

type RetentionConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression for empty-directory sweeps
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "console"
}

// Parallel reports whether rounds capture all cameras concurrently.
func (c *Config) Parallel() bool {
	return c.Run.JobType == JobParallel
}

// Location is the time zone used for alignment and file names.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
