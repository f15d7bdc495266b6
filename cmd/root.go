// Package cmd is the zdircomp command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zdircomp/zdircomp/logging"
	"github.com/zdircomp/zdircomp/unlock"
)

// app carries what every subcommand needs. One app serves one invocation.
type app struct {
	v    *viper.Viper
	cfg  config
	fsys afero.Fs
	out  io.Writer

	// coordinator overrides the platform unlock coordinator.
	coordinator unlock.Coordinator

	exitCode int
}

func newApp(out io.Writer) *app {
	return &app{
		v:    viper.New(),
		fsys: afero.NewOsFs(),
		out:  out,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "zdircomp",
		Short: "Prune torrent download directories and release file locks",
		Long: `zdircomp keeps a download directory in line with its torrent.

"sync" deletes every file the torrent does not list and removes directories
left empty. "unlock" stops the processes holding files in a directory open
so the directory can be moved or deleted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError{err: errors.New("missing command"), usage: cmd.UsageString()}
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			if err := initConfig(a.v, cfgFile); err != nil {
				return err
			}
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Init(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Quiet: !cfg.Verbose})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default zdircomp.yaml next to the executable, in ~/.config/zdircomp or .)")
	flags.String("log-dir", "", "directory for zdircomp.log (default: executable directory)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.BoolP("verbose", "v", false, "also log to the console")
	flags.String("format", "text", "output format: text, json, yaml")
	flags.String("history-db", "", "record every run in this SQLite database")
	bindFlags(a.v, flags, "log-dir", "log-level", "verbose", "format", "history-db")

	root.AddCommand(
		a.syncCmd(),
		a.unlockCmd(),
		a.historyCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string) int {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, ue.usage)
		}
		return 1
	}
	return a.exitCode
}

type usageError struct {
	err   error
	usage string
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exactArgs is cobra.ExactArgs with the usage line attached to the error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err: err, usage: "Usage: " + cmd.UseLine()}
		}
		return nil
	}
}
