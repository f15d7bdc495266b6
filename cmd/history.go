package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zdircomp/zdircomp/history"
)

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync and unlock runs",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.HistoryDB == "" {
				return errors.New("no history database configured (set history_db or --history-db)")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			prune, _ := cmd.Flags().GetDuration("prune")

			s, err := history.Open(a.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer s.Close()

			if prune > 0 {
				n, err := s.Prune(time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d runs\n", n)
			}

			runs, err := s.Recent(limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []history.Run{}
			}
			return a.print(runs, formatRuns(runs))
		},
	}
	cmd.Flags().IntP("limit", "l", 20, "number of runs to show (0 for all)")
	cmd.Flags().Duration("prune", 0, "first delete runs older than this")
	return cmd
}

func formatRuns(runs []history.Run) string {
	if len(runs) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s", r.StartedAt.Local().Format(time.DateTime), r.Summary)
	}
	return b.String()
}
