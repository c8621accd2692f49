package root

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/durapage/durapage/cmd"
	"github.com/durapage/durapage/cmd/browse"
	"github.com/durapage/durapage/cmd/configure"
	"github.com/durapage/durapage/cmd/plugins"
)

func NewCommand(ctx context.Context) *cobra.Command {
	command := &cobra.Command{
		Use:     cmd.CommandNameRoot,
		Aliases: []string{"dp"},
		Short:   "durapage command line interface",
		PersistentPreRun: func(c *cobra.Command, args []string) {
			c.SetOut(os.Stdout)
			c.SetErr(os.Stderr)
		},
		RunE: func(c *cobra.Command, args []string) error {
			return c.Help()
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	command.SetHelpCommand(&cobra.Command{
		Hidden: true,
	})
	command.PersistentFlags().String(cmd.FlagNameConfigFile, cmd.ConfigFileDefault, "path to the config file")
	command.PersistentFlags().String(cmd.FlagNameLogFile, "", "path to an optional log file")
	command.AddCommand(
		browse.NewCommand(ctx),
		configure.NewCommand(ctx),
		plugins.NewCommand(ctx),
	)
	command.SetOut(os.Stdout)
	command.SetErr(os.Stderr)
	return command
}
