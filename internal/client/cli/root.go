package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the alertctl command tree bound to a.
func (a *App) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "alertctl",
		Short:         "Submit and query threat-intel alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient(a.config)
			if err != nil {
				return err
			}
			a.client = c
			return nil
		},
	}

	a.config.BindFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print raw JSON")

	root.SetOut(a.out)
	root.SetErr(a.out)

	root.AddCommand(a.newRegisterCmd())
	root.AddCommand(a.newLoginCmd())
	root.AddCommand(a.newLogoutCmd())
	root.AddCommand(a.newAlertsCmd())

	return root
}
