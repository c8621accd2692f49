package browse

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/durapage/durapage/cmd"
	"github.com/durapage/durapage/internal/browser"
	"github.com/durapage/durapage/internal/plugin"
)

func NewCommand(ctx context.Context) *cobra.Command {
	command := &cobra.Command{
		Use:   fmt.Sprintf("%s [url]", cmd.CommandNameBrowse),
		Short: "Launch a stealth browser session and keep it open until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			conf, log, closeLog, err := cmd.Bootstrap(c)
			if err != nil {
				return err
			}
			defer closeLog()
			consent := plugin.ConsentFunc(plugin.AutoConsent)
			if !*conf.Plugins.AutoConsent {
				consent = plugin.StdinConsent(c.InOrStdin(), c.OutOrStdout())
			}
			provisioner := plugin.NewProvisioner(*conf.Plugins.Dir, nil, consent, log)
			session, err := browser.Launch(ctx, conf, provisioner, log)
			if err != nil {
				return fmt.Errorf("error launching browser session: %w", err)
			}
			defer session.Close()
			if len(args) == 1 {
				if err = session.Navigate(args[0]); err != nil {
					return err
				}
			}
			<-ctx.Done()
			return nil
		},
	}
	return command
}
