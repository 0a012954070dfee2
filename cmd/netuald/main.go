// Command netuald is the multipath tunnel server: it binds the control
// plane, the tunnel UDP socket, and the virtual interface, then runs the
// ingress/egress forwarders and the idle-session reaper until signaled to
// stop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thvlayu/Netual/internal/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "netuald",
		Short:         "Multipath tunnel server daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the JSON configuration file (overrides NETUAL_CONFIG)")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print netuald build information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("netuald", version.Version)
		},
	}
}
