package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zdircomp/zdircomp/unlock"
)

func (a *app) unlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock <dir>",
		Short: "Stop processes holding files under dir open",
		Long: `Find every process holding a file under dir open and stop it.

The unconditional policy asks each holder to exit and force-kills the ones
that do not. The selective policy kills holders one by one and spares the
process names given with --exclude, such as the download client itself.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := expandPath(args[0])
			if err != nil {
				return err
			}

			o := unlock.Run(cmd.Context(), a.fsys, unlock.Options{
				Dir:         dir,
				Policy:      a.cfg.Policy,
				Exclude:     a.cfg.Exclude,
				Grace:       a.cfg.Grace,
				Coordinator: a.coordinator,
			})
			return a.report(o)
		},
	}

	flags := cmd.Flags()
	flags.String("policy", "", "unconditional or selective (default unconditional)")
	flags.StringSlice("exclude", nil, "process name the selective policy never kills (repeatable)")
	flags.Duration("grace", 0, "how long holders get to exit before being killed (default 5s)")
	bindFlags(a.v, flags, "policy", "exclude", "grace")
	return cmd
}
