package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nanzhong/tickerbot/app"
	"github.com/nanzhong/tickerbot/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
	appOpts    []app.Option
}

// load reads the configuration and wires the application. serve enables the checks
// only the Slack server needs.
func (o *rootOptions) load(serve bool) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	validate := cfg.Validate
	if serve {
		validate = cfg.ValidateServe
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log.NewEntry(logger), o.appOpts...)
}

func newRootCmd(appOpts ...app.Option) *cobra.Command {
	opts := &rootOptions{appOpts: appOpts}

	cmd := &cobra.Command{
		Use:           "tickerbot",
		Short:         "Stock quote bot for Slack",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the YAML config file (default $CONFIG_FILE or ./tickerbot.yaml).")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level.")

	cmd.AddCommand(
		newServeCmd(opts),
		newQuoteCmd(opts),
		newSearchCmd(opts),
		newAskCmd(opts),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Fatal("tickerbot failed")
	}
}
