package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/registry"
)

const defaultConfigPath = "config.yaml"

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "camrelay",
		Short:         "Capture live camera pages on a schedule and relay the crops",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfigPath, "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCamerasCommand(ctx))
	rootCmd.AddCommand(newNextCommand(ctx))
	rootCmd.AddCommand(newRetainedCommand(ctx))
	rootCmd.AddCommand(newRedeliverCommand(ctx))
	rootCmd.AddCommand(newLedgerCommand(ctx))

	return rootCmd
}

// commandContext loads the configuration once per invocation and shares it
// between subcommands.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := defaultConfigPath
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// logger writes to the command's stderr so table output on stdout stays
// clean.
func (c *commandContext) logger(cmd *cobra.Command) (logging.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
}

// cameras loads the registry and resolves the configured selection.
func (c *commandContext) cameras() (*registry.Registry, []registry.Camera, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return nil, nil, err
	}
	cams, err := reg.Resolve(cfg.Registry.Cameras)
	if err != nil {
		return nil, nil, err
	}
	return reg, cams, nil
}
