package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smilestore/internal/app"
	"smilestore/internal/config"
	"smilestore/internal/logging"
)

// skipWire marks commands that run without opening the store.
const skipWire = "smilestore/skip-wire"

var (
	cfgFile  string
	v        *viper.Viper
	settings *config.Config
	appCtx   *app.Wire
)

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRoot(os.Stdout, os.Stderr).ExecuteContext(context.Background())
}

func newRoot(stdout, stderr io.Writer) *cobra.Command {
	v = config.NewViper()

	root := &cobra.Command{
		Use:           "smilestore",
		Short:         "Encrypted record store with network-share and HDFS replication",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnvFiles()
			var err error
			settings, err = config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(settings.Log.Level, settings.Log.Format, stderr)
			if err != nil {
				return err
			}
			log.Logger = logger

			if cmd.Annotations[skipWire] == "true" {
				return nil
			}
			appCtx, err = app.NewWire(cmd.Context(), app.Config{Settings: settings, Logger: logger})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appCtx != nil {
				appCtx.Close()
				appCtx = nil
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.String("data-dir", "", "local storage path (LOCAL_STORAGE_PATH)")
	pf.String("namenode", "", "WebHDFS namenode URL (HDFS_NAMENODE_URL)")
	pf.Bool("replicate", false, "mirror writes to HDFS (USE_HDFS_REPLICATION)")
	pf.String("log-level", "", "trace, debug, info, warn or error (LOG_LEVEL)")
	pf.String("log-format", "", "console or json (LOG_FORMAT)")
	_ = v.BindPFlag(config.KeyLocalPath, pf.Lookup("data-dir"))
	_ = v.BindPFlag(config.KeyNamenodeURL, pf.Lookup("namenode"))
	_ = v.BindPFlag(config.KeyReplicationEnabled, pf.Lookup("replicate"))
	_ = v.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, pf.Lookup("log-format"))

	root.AddCommand(
		initCmd(),
		putCmd(),
		getCmd(),
		listCmd(),
		deleteCmd(),
		existsCmd(),
		nextIDCmd(),
		reindexCmd(),
		syncCmd(),
		mountCmd(),
		unmountCmd(),
		mountStatusCmd(),
		keygenCmd(),
		seedCmd(),
	)
	return root
}

func withoutWire(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[skipWire] = "true"
	return cmd
}

// exitError carries a process exit code without printing anything more.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// ExitCode maps an Execute error to a process exit code and reports it.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	log.Error().Err(err).Msg("command failed")
	return 1
}
