package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/privatepub/privatepub"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "PRIVATEPUB_"

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "privatepub",
		Short: "Publish to and authorize subscriptions on a Faye server",
		Long: `privatepub publishes messages to a Faye server over HTTP and signs or checks
the HMAC signatures protecting Faye channels.

The configuration is read from privatepub.{yml,json,toml} in the current directory,
$XDG_CONFIG_HOME/privatepub/ or /etc/privatepub/, from PRIVATEPUB_* environment
variables (a .env file is loaded if present) and from flags.

With --environment, the settings are read from the named section of the configuration
file. Flags and environment variables still override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			privatepub.InitConfig(v)

			if f := v.GetString("config"); f != "" {
				v.SetConfigFile(f)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("%w: unable to read %q: %w", privatepub.ErrInvalidConfig, f, err)
				}
			}

			return nil
		},
	}

	fs := rootCmd.PersistentFlags()
	fs.StringP("config", "c", "", "configuration file")
	fs.StringP("environment", "E", "", "section of the configuration file to use, for instance production")
	privatepub.SetFlags(fs, v)
	bindFlags(fs, v)

	rootCmd.AddCommand(
		newPublishCmd(v),
		newSignCmd(v),
		newServeCmd(v),
		newVersionCmd(),
	)

	return rootCmd
}

// currentConfig reads the configuration, from the section named by the environment setting if any.
//
// Flags and environment variables take precedence over the selected section.
func currentConfig(v *viper.Viper, fs *pflag.FlagSet) (privatepub.Config, error) {
	env := v.GetString("environment")
	if env == "" {
		return privatepub.NewConfigFromViper(v)
	}

	sub := v.Sub(env)
	if sub == nil {
		return privatepub.Config{}, fmt.Errorf("%w: no %q environment in the configuration", privatepub.ErrInvalidConfig, env)
	}

	for _, key := range privatepub.ConfigKeys {
		_, fromEnv := os.LookupEnv(envPrefix + strings.ToUpper(key))
		if f := fs.Lookup(strings.ReplaceAll(key, "_", "-")); fromEnv || (f != nil && f.Changed) {
			sub.Set(key, v.Get(key))
		}
	}

	return privatepub.NewConfigFromViper(sub)
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if v.GetBool("debug") {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		return nil, fmt.Errorf("unable to create logger: %w", err)
	}

	return logger, nil
}

func bindFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.VisitAll(func(f *pflag.Flag) {
		v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), fs.Lookup(f.Name))
	})
}
