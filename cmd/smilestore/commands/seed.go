package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"smilestore/internal/seed"
)

func seedCmd() *cobra.Command {
	var file string
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixture records (the built-in sample set by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []seed.Entry
			var err error
			if file == "" {
				entries, err = seed.Sample()
			} else {
				var f *os.File
				if f, err = os.Open(file); err != nil {
					return err
				}
				defer f.Close()
				entries, err = seed.Load(f)
			}
			if err != nil {
				return err
			}

			res, err := seed.Apply(cmd.Context(), appCtx.Records, entries, skipExisting, log.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", res.Created, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture file")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "leave records that already exist untouched")
	return cmd
}
