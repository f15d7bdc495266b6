package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flynn/go-shlex"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zdircomp/zdircomp/unlock"
)

type config struct {
	LogDir    string
	LogLevel  string
	Verbose   bool
	Format    string
	HistoryDB string

	Settle    time.Duration
	SettleMax time.Duration
	DryRun    bool
	Keep      []string

	Policy  unlock.Policy
	Exclude []string
	Grace   time.Duration
}

var formats = []string{"text", "json", "yaml"}

// initConfig sets defaults, the environment binding and reads the config
// file. A missing config file is not an error unless one was named.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetDefault("log_level", "info")
	v.SetDefault("format", "text")
	v.SetDefault("settle", 3*time.Second)
	v.SetDefault("settle_max", 30*time.Second)
	v.SetDefault("policy", string(unlock.Unconditional))
	v.SetDefault("grace", 5*time.Second)

	v.SetEnvPrefix("ZDIRCOMP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("zdircomp")
	v.SetConfigType("yaml")
	if dir := exeDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "zdircomp"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		LogLevel:  v.GetString("log_level"),
		Verbose:   v.GetBool("verbose"),
		Format:    strings.ToLower(v.GetString("format")),
		Settle:    v.GetDuration("settle"),
		SettleMax: v.GetDuration("settle_max"),
		DryRun:    v.GetBool("dry_run"),
		Grace:     v.GetDuration("grace"),
	}

	var err error
	if cfg.LogDir, err = expandPath(v.GetString("log_dir")); err != nil {
		return cfg, err
	}
	if cfg.LogDir == "" {
		cfg.LogDir = exeDir()
	}
	if cfg.HistoryDB, err = expandPath(v.GetString("history_db")); err != nil {
		return cfg, err
	}

	if !lo.Contains(formats, cfg.Format) {
		return cfg, fmt.Errorf("unknown format %q (want one of %s)", cfg.Format, strings.Join(formats, ", "))
	}
	if cfg.Policy, err = unlock.ParsePolicy(v.GetString("policy")); err != nil {
		return cfg, err
	}
	if cfg.Exclude, err = stringList(v, "exclude"); err != nil {
		return cfg, err
	}
	if cfg.Keep, err = stringList(v, "keep"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// stringList reads a list-valued key. A single string, as the environment
// provides, is split shell-style so quoted names may contain spaces.
func stringList(v *viper.Viper, key string) ([]string, error) {
	if s, ok := v.Get(key).(string); ok {
		parts, err := shlex.Split(s)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		return parts, nil
	}
	return v.GetStringSlice(key), nil
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	p, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return filepath.Abs(p)
}

// exeDir is the directory holding the running executable, or "" if it
// cannot be determined.
func exeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// bindFlags binds each hyphenated flag to its underscored config key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name)) //nolint:errcheck
	}
}
