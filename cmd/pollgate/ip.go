package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carr-o-t/pollgate/internal/netinfo"
)

func newIPCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ip [interface]",
		Short: "Print the IPv4 address of a network interface",
		Long: `Print the IPv4 address of the named interface, or of the configured
interface when none is given. Prints ` + netinfo.Placeholder + ` when no address is available.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var iface string
			if len(args) == 1 {
				iface = args[0]
			} else {
				cfg, _, err := load()
				if err != nil {
					return err
				}
				iface = cfg.Interface
			}
			fmt.Fprintln(cmd.OutOrStdout(), netinfo.InterfaceAddress(iface))
			return nil
		},
	}
}
