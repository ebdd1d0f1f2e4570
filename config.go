package privatepub

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNoServer is returned when publishing without a configured Faye server.
	ErrNoServer = fmt.Errorf("%w: no server specified, ensure configuration was loaded properly", ErrInvalidConfig)
	// ErrNoSecretToken is returned when signing without a configured secret token.
	ErrNoSecretToken = fmt.Errorf("%w: no secret_token specified, ensure configuration was loaded properly", ErrInvalidConfig)
)

// Config holds the settings shared by the signer, the publisher and the authorizer.
//
// The zero value is the reset configuration: no server, no secret token and signatures that never expire.
type Config struct {
	// Server is the URL of the Faye endpoint, for instance http://localhost:9292/faye.
	Server string
	// SecretToken is the key shared with the Faye server extension.
	SecretToken string
	// SignatureExpiration is the maximum age of a signature, 0 disables expiration.
	SignatureExpiration time.Duration
	// ProtectedChannels lists the channel selectors requiring authorization, all channels when empty.
	ProtectedChannels []string
}

// ConfigKeys lists the settings read by NewConfigFromViper.
var ConfigKeys = []string{"server", "secret_token", "signature_expiration", "protected_channels"} //nolint:gochecknoglobals

const maxSignatureExpiration = int64(math.MaxInt64 / time.Second)

// ConfigStore holds the process-wide Config.
//
// Readers always see a complete Config: values are replaced as a whole, never patched.
type ConfigStore struct {
	c atomic.Pointer[Config]
}

// NewConfigStore creates a store holding the reset configuration.
func NewConfigStore() *ConfigStore {
	s := &ConfigStore{}
	s.Reset()

	return s
}

// Reset replaces the stored configuration by the empty one.
func (s *ConfigStore) Reset() {
	s.c.Store(&Config{})
}

// Get returns the current configuration.
func (s *ConfigStore) Get() Config {
	if c := s.c.Load(); c != nil {
		return *c
	}

	return Config{}
}

// Set replaces the stored configuration.
func (s *ConfigStore) Set(c Config) {
	s.c.Store(&c)
}

// SetConfigDefaults sets defaults on a Viper instance.
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("signature_expiration", 0)
	v.SetDefault("protected_channels", []string{})
	v.SetDefault("addr", "127.0.0.1:9293")
	v.SetDefault("read_timeout", 5*time.Second)
	v.SetDefault("write_timeout", 10*time.Second)
	v.SetDefault("metrics_enabled", false)
}

// SetFlags creates flags and bind them to Viper.
func SetFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.BoolP("debug", "d", false, "enable the debug mode")
	fs.StringP("server", "s", "", "URL of the Faye server")
	fs.StringP("secret-token", "k", "", "secret token shared with the Faye server")
	fs.Int64P("signature-expiration", "e", 0, "maximum age of a signature in seconds, 0 to disable")
	fs.StringSliceP("protected-channels", "p", []string{}, "channel selectors requiring authorization, all channels by default")

	fs.VisitAll(func(f *pflag.Flag) {
		v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), fs.Lookup(f.Name))
	})
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig(v *viper.Viper) {
	SetConfigDefaults(v)

	v.SetConfigName("privatepub")
	v.SetEnvPrefix("privatepub")
	v.AutomaticEnv()

	v.AddConfigPath(".")
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = "$HOME/.config"
	}
	v.AddConfigPath(configDir + "/privatepub/")
	v.AddConfigPath("/etc/privatepub/")

	v.ReadInConfig()
}

// NewConfigFromViper creates a Config from a Viper instance.
func NewConfigFromViper(v *viper.Viper) (Config, error) {
	expiration := v.GetInt64("signature_expiration")
	if expiration < 0 || expiration > maxSignatureExpiration {
		return Config{}, fmt.Errorf("%w: signature_expiration must be between 0 and %d seconds, got %d", ErrInvalidConfig, maxSignatureExpiration, expiration)
	}

	return Config{
		Server:              v.GetString("server"),
		SecretToken:         v.GetString("secret_token"),
		SignatureExpiration: time.Duration(expiration) * time.Second,
		ProtectedChannels:   v.GetStringSlice("protected_channels"),
	}, nil
}

// LoadConfig reads the section named after environment in a YAML file such as:
//
//	development:
//	  server: "http://localhost:9292/faye"
//	  secret_token: "secret"
//	  signature_expiration: 3600
func LoadConfig(filename, environment string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: unable to read %q: %w", ErrInvalidConfig, filename, err)
	}

	sub := v.Sub(environment)
	if sub == nil {
		return Config{}, fmt.Errorf("%w: no %q environment in %q", ErrInvalidConfig, environment, filename)
	}

	return NewConfigFromViper(sub)
}
