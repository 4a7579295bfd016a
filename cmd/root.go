package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emaland/spotinfer/internal/config"
	"github.com/emaland/spotinfer/internal/provider"
)

var (
	cfg config.Config
	log = logrus.New()

	// newSource is swapped out in tests.
	newSource = provider.New
)

type rootFlags struct {
	provider     string
	clientID     string
	clientSecret string
	region       string
	az           string
	endpoint     string
	logLevel     string
	configPath   string
}

var flags rootFlags

func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	root := &cobra.Command{
		Use:   "spotinfer",
		Short: "Find the cheapest GPU instances for inference",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if flags.configPath != "" {
				cfg, err = config.LoadFile(flags.configPath)
			} else {
				cfg, err = config.LoadConfig()
			}
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd)

			if err := setupLogger(cmd, cfg.LogLevel); err != nil {
				return err
			}
			if err := provider.LoadDotEnv(); err != nil {
				log.WithError(err).Warn("ignoring .env")
			}
			return nil
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.provider, "provider", "", "Offer provider: datacrunch or aws (default from config)")
	pf.StringVar(&flags.clientID, "client-id", "", "Provider client ID / AWS access key ID")
	pf.StringVar(&flags.clientSecret, "client-secret", "", "Provider client secret / AWS secret access key")
	pf.StringVar(&flags.region, "region", "", "AWS region (default from config)")
	pf.StringVar(&flags.az, "az", "", "Only show offers in this AWS availability zone")
	pf.StringVar(&flags.endpoint, "endpoint", "", "Override the provider API endpoint")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.configPath, "config", "", "Config file (default ~/.config/spotinfer/default.json)")

	root.AddCommand(
		newOffersCmd(),
		newGPUTypesCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func applyFlagOverrides(cmd *cobra.Command) {
	pf := cmd.Flags()
	if pf.Changed("provider") {
		cfg.Provider = flags.provider
	}
	if pf.Changed("region") {
		cfg.AWSRegion = flags.region
	}
	if pf.Changed("az") {
		cfg.AWSAZ = flags.az
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
}

func setupLogger(cmd *cobra.Command, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return nil
}

// openSource builds the configured provider source.
func openSource(ctx context.Context) (provider.Source, error) {
	opts := provider.Options{
		ClientID:          flags.clientID,
		ClientSecret:      flags.clientSecret,
		DataCrunchBaseURL: cfg.DataCrunchBaseURL,
		Region:            cfg.AWSRegion,
		AZ:                cfg.AWSAZ,
		VerifyAWS:         true,
		Timeout:           cfg.Timeout(),
		Logger:            log,
	}
	if flags.endpoint != "" {
		opts.DataCrunchBaseURL = flags.endpoint
		opts.Endpoint = flags.endpoint
	}
	src, err := newSource(ctx, cfg.Provider, opts)
	if err != nil {
		return nil, err
	}
	log.WithField("provider", src.Name()).Debug("using provider")
	return src, nil
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
