// Package config loads the clickback server configuration from defaults, an optional config file,
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"braces.dev/errtrace"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ghettovoice/clickback/callback"
	"github.com/ghettovoice/clickback/internal/errorutil"
)

type ConfigOption struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

const (
	KeyServerAddress         = "server.address"
	KeyCallbackLifetime      = "callback.lifetime"
	KeyCallbackUses          = "callback.uses"
	KeyCallbackSweepInterval = "callback.sweep_interval"
	KeyCallbackCommandPrefix = "callback.command_prefix"
	KeyLogDev                = "log.dev"
	KeyLogDebug              = "log.debug"
)

var ServeOptions = []ConfigOption{
	{Key: KeyServerAddress, Flag: flag(KeyServerAddress), Default: ":8080", Description: "HTTP listen address"},
	{Key: KeyCallbackLifetime, Flag: flag(KeyCallbackLifetime), Default: callback.DefaultLifetime, Description: "Default callback lifetime"},
	{Key: KeyCallbackUses, Flag: flag(KeyCallbackUses), Default: callback.DefaultUses, Description: "Default callback uses, -1 for unlimited"},
	{Key: KeyCallbackSweepInterval, Flag: flag(KeyCallbackSweepInterval), Default: time.Minute, Description: "Interval of the expired callbacks sweep, negative to disable"},
	{Key: KeyCallbackCommandPrefix, Flag: flag(KeyCallbackCommandPrefix), Default: callback.DefaultCommandPrefix, Description: "Prefix of callback commands"},
	{Key: KeyLogDev, Flag: flag(KeyLogDev), Default: false, Description: "Developer friendly log output"},
	{Key: KeyLogDebug, Flag: flag(KeyLogDebug), Default: false, Description: "Enable debug logging"},
}

type Config struct {
	v *viper.Viper
}

func New() (*Config, error) {
	v := viper.New()

	// default values
	for _, o := range ServeOptions {
		v.SetDefault(o.Key, o.Default)
	}

	// load config from file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/clickback/")

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) && !errors.Is(err, os.ErrNotExist) {
			return nil, errtrace.Wrap(fmt.Errorf("failed to read config file: %w", err))
		}
	}

	// load config from environment variables
	v.SetEnvPrefix("CLICKBACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

func (c *Config) BindFlags(fs *pflag.FlagSet, options []ConfigOption) error {
	for _, o := range options {
		switch v := o.Default.(type) {
		case string:
			fs.String(o.Flag, v, o.Description)
		case int:
			fs.Int(o.Flag, v, o.Description)
		case bool:
			fs.Bool(o.Flag, v, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, v, o.Description)
		default:
			return errtrace.Wrap(fmt.Errorf("unsupported flag type for key: %s", o.Key))
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return errtrace.Wrap(fmt.Errorf("failed to bind flag %s: %w", o.Flag, err))
		}
	}

	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerAddress() == "" {
		errs = append(errs, errorutil.NewInvalidArgumentError("%s is empty", KeyServerAddress))
	}
	if d := c.CallbackLifetime(); d < 0 {
		errs = append(errs, errorutil.NewInvalidArgumentError("%s is negative: %v", KeyCallbackLifetime, d))
	}
	if n := c.CallbackUses(); n < callback.UnlimitedUses {
		errs = append(errs, errorutil.NewInvalidArgumentError("%s is out of range: %d", KeyCallbackUses, n))
	}
	return errtrace.Wrap(errorutil.JoinPrefix("invalid config:", errs...))
}

func (c *Config) ServerAddress() string {
	return c.v.GetString(KeyServerAddress) // CLICKBACK_SERVER_ADDRESS
}

func (c *Config) CallbackLifetime() time.Duration {
	return c.v.GetDuration(KeyCallbackLifetime) // CLICKBACK_CALLBACK_LIFETIME
}

func (c *Config) CallbackUses() int {
	return c.v.GetInt(KeyCallbackUses) // CLICKBACK_CALLBACK_USES
}

func (c *Config) CallbackSweepInterval() time.Duration {
	return c.v.GetDuration(KeyCallbackSweepInterval) // CLICKBACK_CALLBACK_SWEEP_INTERVAL
}

func (c *Config) CallbackCommandPrefix() string {
	return c.v.GetString(KeyCallbackCommandPrefix) // CLICKBACK_CALLBACK_COMMAND_PREFIX
}

func (c *Config) LogDev() bool {
	return c.v.GetBool(KeyLogDev) // CLICKBACK_LOG_DEV
}

func (c *Config) LogDebug() bool {
	return c.v.GetBool(KeyLogDebug) // CLICKBACK_LOG_DEBUG
}

func flag(key string) string {
	flag := strings.ToLower(key)
	flag = strings.ReplaceAll(flag, ".", "-")
	flag = strings.ReplaceAll(flag, "_", "-")
	flag = strings.TrimPrefix(flag, "server-")
	return flag
}
