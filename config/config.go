// Package config resolves the CLI surface in spec section 6. Parsing
// itself is respecified onto cobra/pflag/viper (SPEC_FULL.md's ambient
// stack); flag names, ranges, defaults, and the "bad input exits 0" rule
// are unchanged from spec.md.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the fully validated, ready-to-run set of simulation
// parameters.
type Config struct {
	MapName      string
	MaxPassengers int
	MaxVehicles  int
	MatchType    string // "simple" or "closest", already lower-cased
	MinWaitSec   int
	JitterSec    int

	// Additive telemetry options (SPEC_FULL.md's DOMAIN STACK), outside
	// spec.md's CLI table.
	HTTPAddr  string
	RedisAddr string
}

// Load parses os.Args, layers viper env/file overrides under the flags,
// validates ranges, and returns a ready Config. Only the map name and the
// match policy are read from env/file; every other setting comes from its
// flag or flag default alone. On bad input it prints
// help and exits the process with code 0, per spec section 6 — it never
// returns an error to the caller for that case.
func Load() *Config {
	cfg := &Config{}
	var configFile string

	root := &cobra.Command{
		Use:           "ridesim",
		Short:         "ride-hailing marketplace simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.Flags()
	flags.StringVarP(&cfg.MapName, "map", "m", "downtown-kc", "map base-name (<name>.osm / <name>.png)")
	flags.IntVarP(&cfg.MaxPassengers, "passengers", "p", 10, "max passengers [0,100]")
	flags.IntVarP(&cfg.MaxVehicles, "vehicles", "v", 10, "max vehicles [0,100]")
	flags.StringVarP(&cfg.MatchType, "match", "t", "closest", "matching policy: simple|closest")
	flags.IntVarP(&cfg.MinWaitSec, "wait", "w", 3, "minimum seconds between passenger spawn attempts (>=1)")
	flags.IntVarP(&cfg.JitterSec, "jitter", "r", 2, "additional random jitter seconds on top of -w (>=0)")
	flags.StringVarP(&configFile, "config", "c", "", "optional TOML/JSON config file")
	flags.StringVar(&cfg.HTTPAddr, "http", ":8089", "telemetry HTTP/WebSocket listen address")
	flags.StringVar(&cfg.RedisAddr, "redis", "", "optional redis address for snapshot pub/sub")

	valid := true
	root.RunE = func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		v.SetEnvPrefix("RIDESIM")
		v.AutomaticEnv()
		if configFile != "" {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("config: read %s: %w", configFile, err)
			}
		}
		bindOverride(v, flags, "map", &cfg.MapName)
		bindOverride(v, flags, "match", &cfg.MatchType)

		cfg.MatchType = strings.ToLower(cfg.MatchType)
		valid = validate(cfg)
		return nil
	}

	if err := root.Execute(); err != nil || !valid {
		_ = root.Help()
		os.Exit(0)
	}
	// cobra's auto-registered -h/--help flag prints help and returns from
	// Execute without ever running RunE, so valid is left at its
	// initial true above: catch it explicitly so -h still exits 0
	// rather than falling through into a run (spec section 6).
	if help, _ := flags.GetBool("help"); help {
		os.Exit(0)
	}
	return cfg
}

// bindOverride applies a viper-resolved env/file value when the flag
// itself was left at its default (flags always win over env/file, per
// viper's normal precedence rules).
func bindOverride(v *viper.Viper, flags interface{ Changed(string) bool }, name string, dst *string) {
	if flags.Changed(name) {
		return
	}
	if val := v.GetString(name); val != "" {
		*dst = val
	}
}

func validate(cfg *Config) bool {
	if cfg.MaxPassengers < 0 || cfg.MaxPassengers > 100 {
		return false
	}
	if cfg.MaxVehicles < 0 || cfg.MaxVehicles > 100 {
		return false
	}
	if cfg.MatchType != "simple" && cfg.MatchType != "closest" {
		return false
	}
	if cfg.MinWaitSec < 1 {
		return false
	}
	if cfg.JitterSec < 0 {
		return false
	}
	return true
}
