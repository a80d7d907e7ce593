package config

import "time"

// Default returns a config populated with the values used when a field is
// absent from the yaml file.
func Default() Config {
	return Config{
		Storage: StorageConfig{Path: "images"},
		Run: RunConfig{
			JobType:          JobParallel,
			AlignmentMinutes: 10,
			StartupOverhead:  40 * time.Second,
			Timezone:         "America/Manaus",
		},
		Capture: CaptureConfig{
			Endpoint:       "http://localhost:4444/wd/hub",
			Browser:        "firefox",
			EnableVNC:      true,
			ImageFormat:    ".png",
			CameraInterval: 60 * time.Second,
			LoadWait:       15 * time.Second,
			TriggerWait:    time.Second,
			PlayWait:       5 * time.Second,
		},
		Registry: RegistryConfig{
			Path: "cameras.json",
			Watch: WatchConfig{
				Mode:            "auto",
				PollInterval:    5 * time.Second,
				DebounceWindow:  500 * time.Millisecond,
				StabilityWindow: 200 * time.Millisecond,
			},
		},
		Delivery: DeliveryConfig{
			Backend: "http",
			HTTP:    HTTPConfig{Timeout: 30 * time.Second},
			S3:      S3Config{Region: "us-east-1"},
			Ledger:  LedgerConfig{Driver: "sqlite"},
		},
		Retention: RetentionConfig{
			Enabled:  true,
			Schedule: "@hourly",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
