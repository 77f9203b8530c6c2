package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"officedesk/internal/backend"
	"officedesk/internal/logger"
	"officedesk/internal/probe"
	"officedesk/internal/window"
)

// Config is the top-level TOML structure.
//
// Example:
//
//	[backend]
//	script = "/opt/officedesk/backend/manage.py"
//	port = 8000
//
//	[probe]
//	timeout = "30s"
//	max_attempts = 60
//	interval = "500ms"
//	success_policy = "redirect_ok"
//
//	[history]
//	enabled = true
type Config struct {
	Backend BackendConfig `toml:"backend" mapstructure:"backend"`
	Probe   ProbeConfig   `toml:"probe" mapstructure:"probe"`
	Window  window.Config `toml:"window" mapstructure:"window"`
	Log     logger.Config `toml:"log" mapstructure:"log"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	API     APIConfig     `toml:"api" mapstructure:"api"`
}

type BackendConfig struct {
	Name        string        `toml:"name" mapstructure:"name"`
	Script      string        `toml:"script" mapstructure:"script"`
	Interpreter string        `toml:"interpreter" mapstructure:"interpreter"`
	VenvDir     string        `toml:"venv_dir" mapstructure:"venv_dir"`
	Host        string        `toml:"host" mapstructure:"host"`
	Port        int           `toml:"port" mapstructure:"port"`
	Env         []string      `toml:"env" mapstructure:"env"`
	StopWait    time.Duration `toml:"stop_wait" mapstructure:"stop_wait"`
}

type ProbeConfig struct {
	Timeout       time.Duration `toml:"timeout" mapstructure:"timeout"`
	MaxAttempts   int           `toml:"max_attempts" mapstructure:"max_attempts"`
	Interval      time.Duration `toml:"interval" mapstructure:"interval"`
	SuccessPolicy string        `toml:"success_policy" mapstructure:"success_policy"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	DSN     string `toml:"dsn" mapstructure:"dsn"`
}

type APIConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// DefaultAPIListen keeps the diagnostics API loopback-only.
const DefaultAPIListen = "127.0.0.1:8790"

// DefaultHistoryDSN is used when history is enabled without an explicit DSN.
const DefaultHistoryDSN = "officedesk-history.db"

// Load reads a TOML config file. A missing path yields the zero Config so
// every setting falls back to package defaults.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// BackendSpec converts the backend section into a supervisor spec.
func (c Config) BackendSpec() backend.Spec {
	return backend.Spec{
		Name:        c.Backend.Name,
		Script:      c.Backend.Script,
		Interpreter: c.Backend.Interpreter,
		VenvDir:     c.Backend.VenvDir,
		Host:        c.Backend.Host,
		Port:        c.Backend.Port,
		ExtraEnv:    c.Backend.Env,
		StopWait:    c.Backend.StopWait,
		Log:         c.Log,
	}
}

// ProberConfig converts the probe section. The success policy string is
// validated here so a typo fails at startup, not mid-probe.
func (c Config) ProberConfig() (probe.Config, error) {
	policy, err := ParsePolicy(c.Probe.SuccessPolicy)
	if err != nil {
		return probe.Config{}, err
	}
	return probe.Config{
		Timeout:     c.Probe.Timeout,
		MaxAttempts: c.Probe.MaxAttempts,
		Interval:    c.Probe.Interval,
		Policy:      policy,
	}, nil
}

// ParsePolicy maps the config string onto a probe.SuccessPolicy.
// The empty string selects the strict default.
func ParsePolicy(s string) (probe.SuccessPolicy, error) {
	switch s {
	case "", "redirect_ok":
		return probe.PolicyRedirectOK, nil
	case "non_5xx":
		return probe.PolicyAnyNon5xx, nil
	default:
		return 0, fmt.Errorf("unknown success_policy %q (want redirect_ok or non_5xx)", s)
	}
}

// HistoryDSN returns the effective DSN, or "" when history is disabled.
func (c Config) HistoryDSN() string {
	if !c.History.Enabled {
		return ""
	}
	if c.History.DSN == "" {
		return DefaultHistoryDSN
	}
	return c.History.DSN
}

// APIListen returns the effective listen address, or "" when disabled.
func (c Config) APIListen() string {
	if !c.API.Enabled {
		return ""
	}
	if c.API.Listen == "" {
		return DefaultAPIListen
	}
	return c.API.Listen
}
