package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"smilestore/internal/netshare"
)

func shareClient() (*netshare.Client, error) {
	if settings.NetShare.Server == "" {
		return nil, fmt.Errorf("no NFS server configured (NFS_SERVER)")
	}
	return netshare.New(netshare.Config{
		Server:     settings.NetShare.Server,
		SharePath:  settings.NetShare.SharePath,
		MountPoint: settings.NetShare.MountPoint,
		Options:    settings.NetShare.Options,
	}, netshare.WithLogger(log.Logger)), nil
}

func mountCmd() *cobra.Command {
	return withoutWire(&cobra.Command{
		Use:   "mount",
		Short: "Mount the configured NFS export",
		RunE: func(cmd *cobra.Command, args []string) error {
			share, err := shareClient()
			if err != nil {
				return err
			}
			if err := share.Mount(cmd.Context()); err != nil {
				return err
			}
			info := share.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "mounted %s:%s on %s\n", info.Server, info.SharePath, info.MountPoint)
			return nil
		},
	})
}

func unmountCmd() *cobra.Command {
	return withoutWire(&cobra.Command{
		Use:   "unmount",
		Short: "Unmount the NFS export",
		RunE: func(cmd *cobra.Command, args []string) error {
			share, err := shareClient()
			if err != nil {
				return err
			}
			if err := share.Unmount(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "unmounted", share.Info().MountPoint)
			return nil
		},
	})
}

func mountStatusCmd() *cobra.Command {
	return withoutWire(&cobra.Command{
		Use:   "mount-status",
		Short: "Print the NFS target and whether it is mounted",
		RunE: func(cmd *cobra.Command, args []string) error {
			share, err := shareClient()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), share.Info())
		},
	})
}
