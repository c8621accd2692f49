package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/durapage/durapage/internal/config"
	"github.com/durapage/durapage/pkg/logger"
)

const (
	CommandNameRoot      = "durapage"
	CommandNameBrowse    = "browse"
	CommandNameConfigure = "configure"
	CommandNamePlugins   = "plugins"

	FlagNameConfigFile = "config-file"
	FlagNameLogFile    = "log-file"
	ConfigFileDefault  = "config.yaml"
)

// Bootstrap loads and validates the config referenced by the command flags and
// builds the logger, optionally teed to a log file. The returned closer
// releases the log file handle.
func Bootstrap(c *cobra.Command) (*config.Config, *slog.Logger, func() error, error) {
	confPath, err := c.Flags().GetString(FlagNameConfigFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logPath, err := c.Flags().GetString(FlagNameLogFile)
	if err != nil {
		return nil, nil, nil, err
	}
	conf, err := config.Load(confPath, true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	if err = conf.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("error validating config: %w", err)
	}
	log, closeLog, err := logger.NewLoggerWithFile(os.Stdout, logPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return conf, log, closeLog, nil
}
