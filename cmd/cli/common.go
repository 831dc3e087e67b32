package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fieldprobe/fieldprobe/pkg/config"
	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/ui"
)

// envConfig names the configuration file when -config is not given.
const envConfig = "FIELDPROBE_CONFIG"

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
	silent     bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", envOrDefault(envConfig, ""), "YAML configuration file (env "+envConfig+")")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format: text or json")
	fs.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&c.silent, "silent", false, "Only print results and errors")
}

// load reads the configuration file, or the defaults without one, and
// applies the log flags. The caller validates after its own overrides.
func (c *commonFlags) load() (*config.Config, error) {
	ui.SetNoColor(c.noColor)
	ui.SetSilent(c.silent)

	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return nil, err
		}
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	return cfg, nil
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name, usage string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fmt.Fprint(stderr, "\nFlags:\n")
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args. done is true when the command should return
// code right away, after -h or a bad flag.
func parseFlags(fs *flag.FlagSet, args []string) (code int, done bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return defaults.ExitSuccess, true
		}
		return defaults.ExitUserError, true
	}
	return defaults.ExitSuccess, false
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
