package plugins

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/durapage/durapage/cmd"
	"github.com/durapage/durapage/internal/plugin"
)

func NewCommand(ctx context.Context) *cobra.Command {
	command := &cobra.Command{
		Use:   fmt.Sprintf("%s [name...]", cmd.CommandNamePlugins),
		Short: "Provision the anti-detection browser extensions",
		Args: func(c *cobra.Command, args []string) error {
			for _, name := range args {
				if _, found := plugin.URLs()[name]; !found {
					return fmt.Errorf("unknown plugin %s, valid names are: %v", name, plugin.Names())
				}
			}
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			conf, log, closeLog, err := cmd.Bootstrap(c)
			if err != nil {
				return err
			}
			defer closeLog()
			names := args
			if len(names) == 0 {
				names = plugin.Names()
			}
			consent := plugin.ConsentFunc(plugin.AutoConsent)
			if !*conf.Plugins.AutoConsent {
				consent = plugin.StdinConsent(c.InOrStdin(), c.OutOrStdout())
			}
			provisioner := plugin.NewProvisioner(*conf.Plugins.Dir, nil, consent, log)
			available := provisioner.EnsureAll(ctx, names...)
			var missing []string
			for _, name := range names {
				if !slices.Contains(available, name) {
					missing = append(missing, name)
				}
			}
			if len(missing) > 0 {
				return plugin.NewUnavailableError(missing...)
			}
			return nil
		},
	}
	return command
}
