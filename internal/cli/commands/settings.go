package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/chatwrap/pkg/config"
)

// Keys for settings shared by every command. Each is also read from the
// environment as CHATWRAP_<KEY>, with dashes turned into underscores.
const (
	KeyConfig   = "config"
	KeyLogLevel = "log-level"
	KeyTimezone = "timezone"
)

var settings = newSettings()

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CHATWRAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyLogLevel, zerolog.LevelInfoValue)
	return v
}

// BindGlobalFlags registers the persistent flags on root and binds them to
// the shared settings.
func BindGlobalFlags(root *cobra.Command) error {
	pf := root.PersistentFlags()
	pf.String(KeyConfig, "", "Path to a YAML profile")
	pf.String(KeyLogLevel, zerolog.LevelInfoValue, "Log level (debug|info|warn|error)")
	pf.String(KeyTimezone, "", `Zone export times are read in (IANA name, default "Local")`)
	return settings.BindPFlags(pf)
}

// newLogger returns a console logger writing to w at the configured level.
func newLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(settings.GetString(KeyLogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger(), nil
}

// loadConfig loads the profile named by --config (or defaults) and applies
// the --timezone override.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(ctx, settings.GetString(KeyConfig))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if tz := settings.GetString(KeyTimezone); tz != "" && tz != cfg.Timezone {
		cfg.Timezone = tz
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validating config: %w", err)
		}
	}

	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
