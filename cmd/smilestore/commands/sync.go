package commands

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"smilestore/internal/domain"
)

func syncCmd() *cobra.Command {
	var metricsOut string

	cmd := &cobra.Command{
		Use:   "sync [type]",
		Short: "Mirror the local store to HDFS",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !appCtx.Syncer.Active() {
				return errors.New("replication is disabled or the namenode is unreachable")
			}
			types := domain.EntityTypes()
			if len(args) == 1 {
				t, err := parseType(args[0])
				if err != nil {
					return err
				}
				types = []domain.EntityType{t}
			}

			total := 0
			for _, t := range types {
				n := appCtx.Syncer.SyncAllEntities(cmd.Context(), t)
				total += n
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files\n", t, n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d files\n", total)

			if metricsOut != "" {
				return prometheus.WriteToTextfile(metricsOut, appCtx.Registry)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write sync counters in Prometheus text format to this file")
	return cmd
}
