package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/youssefsiam38/agentdesk/tasks"
)

// Storage drivers.
const (
	driverPgx  = "pgx"
	driverSQL  = "sql"
	driverFile = "file"
)

// envPrefix is prepended to every configuration key read from the
// environment, e.g. AGENTDESK_ADDR.
const envPrefix = "AGENTDESK"

// settings is the resolved binary configuration.
type settings struct {
	Addr        string `mapstructure:"addr"`
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
	DataDir     string `mapstructure:"data_dir"`

	ReadOnly        bool          `mapstructure:"read_only"`
	PageSize        int           `mapstructure:"page_size"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	TaskPolicy        string        `mapstructure:"task_policy"`
	MaxTaskIterations int           `mapstructure:"max_task_iterations"`
	RunRetention      time.Duration `mapstructure:"run_retention"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("driver", driverFile)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("read_only", false)
	v.SetDefault("page_size", 25)
	v.SetDefault("refresh_interval", 5*time.Second)
	v.SetDefault("task_policy", string(tasks.PolicyReject))
	v.SetDefault("max_task_iterations", 25)
	v.SetDefault("run_retention", 30*24*time.Hour)
	v.SetDefault("cleanup_interval", 10*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"addr":         "addr",
	"driver":       "driver",
	"database-url": "database_url",
	"data-dir":     "data_dir",
	"read-only":    "read_only",
	"task-policy":  "task_policy",
	"log-level":    "log_level",
	"log-format":   "log_format",
	"log-file":     "log_file",
}

// loadSettings resolves configuration from, in increasing precedence,
// defaults, the config file, the environment and flags. A .env file in the
// working directory is loaded into the environment first.
func loadSettings(cfgFile string, cmd *cobra.Command) (*settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("agentdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *settings) validate() error {
	switch s.Driver {
	case driverPgx, driverSQL:
		if s.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for driver %q", s.Driver)
		}
	case driverFile:
		if s.DataDir == "" {
			return errors.New("data_dir is required for driver \"file\"")
		}
	default:
		return fmt.Errorf("unknown driver %q (want pgx, sql or file)", s.Driver)
	}
	if _, err := tasks.ParsePolicy(s.TaskPolicy); err != nil {
		return err
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want text or json)", s.LogFormat)
	}
	return nil
}
