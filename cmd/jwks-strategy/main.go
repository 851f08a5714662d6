// Command jwks-strategy runs named JWKS strategies behind a small HTTP API
// and verifies tokens from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kidwatch/jwks-strategy/telemetry"
)

type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "jwks-strategy",
		Short:        "Fetch, cache and rotate JWKS signing keys",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("load %s: %w", opts.envFile, err)
				}
			}
			return applyEnv(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before anything else (ignored if missing)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error (env JWKS_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text|json (env JWKS_LOG_FORMAT)")

	root.AddCommand(newServeCmd(opts), newVerifyCmd(opts))
	return root
}

// logger builds the process logger; flags override the file settings.
func (o *rootOptions) logger(fromFile telemetry.LoggerConfig) (*logrus.Logger, error) {
	cfg := fromFile
	if o.logLevel != "" {
		cfg.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Format = o.logFormat
	}
	return telemetry.NewLogger(cfg)
}

// flagEnv maps flags to the environment variables they fall back to.
var flagEnv = map[string]string{
	"log-level":  "JWKS_LOG_LEVEL",
	"log-format": "JWKS_LOG_FORMAT",
	"config":     "JWKS_CONFIG",
	"listen":     "JWKS_LISTEN",
	"jwks-url":   "JWKS_URL",
}

// applyEnv fills flags left unset on the command line from the
// environment. It runs after the dotenv file is loaded.
func applyEnv(cmd *cobra.Command) error {
	flags := cmd.Flags()
	for name, key := range flagEnv {
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if err := flags.Set(name, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}
