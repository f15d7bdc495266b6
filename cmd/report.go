package cmd

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zdircomp/zdircomp/history"
	"github.com/zdircomp/zdircomp/logging"
	"github.com/zdircomp/zdircomp/outcome"
)

// report logs o, records it in the history database if one is
// configured, prints it and sets the exit status.
func (a *app) report(o outcome.Outcome) error {
	l := logging.L()
	if o.Failed() {
		l.Warn(o.Summary(), "kind", o.Kind)
	} else {
		l.Info(o.Summary(), "kind", o.Kind)
	}
	for _, f := range o.Failures {
		l.Warn("item failed", "path", o.Path, "failure", f)
	}

	if a.cfg.HistoryDB != "" {
		if err := recordHistory(a.cfg.HistoryDB, o); err != nil {
			l.Warn("history not recorded", "db", a.cfg.HistoryDB, "err", err)
		}
	}

	a.exitCode = o.ExitCode()
	return a.print(o, o.Summary())
}

func recordHistory(path string, o outcome.Outcome) error {
	s, err := history.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Record(o)
}

// print writes v in the configured format. text prints the given line.
func (a *app) print(v any, text string) error {
	switch a.cfg.Format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	_, err := fmt.Fprintln(a.out, text)
	return err
}
