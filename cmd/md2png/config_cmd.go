package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/yamlutil"
)

// envConfigName names the config file when --config is absent.
const envConfigName = config.EnvPrefix + "CONFIG"

// loadConfig builds the effective configuration before command flags:
// defaults, then the config file (--config or MD2PNG_CONFIG), then
// MD2PNG_* environment variables.
func loadConfig(name string, env *Environment) (*config.Config, error) {
	if name == "" {
		name = env.Getenv(envConfigName)
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := config.ApplyEnv(cfg, env.Getenv); err != nil {
		return nil, err
	}
	config.WarnUnknownEnvVars(env.Stderr, env.Environ())
	return cfg, nil
}

// runConfigCmd prints the effective configuration as YAML.
func runConfigCmd(args []string, env *Environment) error {
	fs := flag.NewFlagSet(cmdConfig, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var name string
	fs.StringVarP(&name, "config", "c", "", "config file name or path")
	fs.Usage = func() { printConfigUsage(env.Stderr) }
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}

	cfg, err := loadConfig(name, env)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(out)
	return err
}
