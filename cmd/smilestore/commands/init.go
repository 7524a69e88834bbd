package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the storage layout and empty indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store already lays out every type directory.
			if err := appCtx.Store.Init(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Storage ready at %s\n", appCtx.BasePath)
			fmt.Fprintf(out, "Key fingerprint: %s\n", appCtx.Cipher.Fingerprint())
			if appCtx.Share != nil {
				fmt.Fprintf(out, "Network share mounted: %t\n", appCtx.Mounted)
			}
			fmt.Fprintf(out, "Replication available: %t\n", appCtx.Replicator.IsAvailable())
			return nil
		},
	}
}
