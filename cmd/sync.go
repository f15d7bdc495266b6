package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zdircomp/zdircomp/sync"
)

func (a *app) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <torrent> <dir>",
		Short: "Delete files in dir that the torrent does not list",
		Long: `Delete every file under dir that is not listed in the torrent, then
remove directories left empty. Directories that already held listed files
are never touched. Files matching a keep pattern, or listed in dir's
.zdirkeep file, are kept.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			torrent, err := expandPath(args[0])
			if err != nil {
				return err
			}
			dir, err := expandPath(args[1])
			if err != nil {
				return err
			}

			o := sync.Run(cmd.Context(), a.fsys, sync.Options{
				ManifestPath: torrent,
				Dir:          dir,
				DryRun:       a.cfg.DryRun,
				Keep:         a.cfg.Keep,
				Settle:       a.cfg.Settle,
				SettleMax:    a.cfg.SettleMax,
			})
			return a.report(o)
		},
	}

	flags := cmd.Flags()
	flags.BoolP("dry-run", "n", false, "report what would be deleted without deleting")
	flags.StringSlice("keep", nil, "glob pattern to keep even if unlisted (repeatable)")
	flags.Duration("settle", 0, "wait until dir has been quiet this long (default 3s)")
	flags.Duration("settle-max", 0, "give up waiting for quiet after this long (default 30s)")
	bindFlags(a.v, flags, "dry-run", "keep", "settle", "settle-max")
	return cmd
}
