// Package config loads gatequeued's process-wide configuration from YAML
// plus environment overrides, and the per-service request schemas it
// references.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/cisgate/gatequeue/gatefs"
	"github.com/cisgate/gatequeue/quota"
	"github.com/cisgate/gatequeue/schema"
	"github.com/spf13/viper"
)

// ServiceConfig is one service's quota policy plus the path to its request
// variable schema, as read from configuration.
type ServiceConfig struct {
	QuotaMB     int64  `mapstructure:"quota"`
	JobSizeMB   int64  `mapstructure:"job_size"`
	MinLifetime int64  `mapstructure:"min_lifetime"`
	MaxLifetime int64  `mapstructure:"max_lifetime"`
	MaxRuntime  int64  `mapstructure:"max_runtime"`
	SchemaPath  string `mapstructure:"schema_path"`
}

// Config is the top-level, process-wide configuration record.
type Config struct {
	GatePathJobs   string `mapstructure:"gate_path_jobs"`
	GatePathOpts   string `mapstructure:"gate_path_opts"`
	GatePathExit   string `mapstructure:"gate_path_exit"`
	GatePathStop   string `mapstructure:"gate_path_stop"`
	GatePathDelete string `mapstructure:"gate_path_delete"`
	GatePathOutput string `mapstructure:"gate_path_output"`
	GatePathDump   string `mapstructure:"gate_path_dump"`

	ConfigSchedulers   []string `mapstructure:"config_schedulers"`
	ConfigSleepTime    int64    `mapstructure:"config_sleep_time"`
	ConfigShutdownTime int64    `mapstructure:"config_shutdown_time"`
	ServiceStates      []string `mapstructure:"service_states"`

	CleanupPoolSize  int `mapstructure:"cleanup_pool_size"`
	CleanupQueueSize int `mapstructure:"cleanup_queue_size"`

	Services map[string]ServiceConfig `mapstructure:"services"`

	PBS SchedulerPBSConfig `mapstructure:"pbs"`
	SSH SchedulerSSHConfig `mapstructure:"ssh"`

	Admin AdminConfig `mapstructure:"admin"`
}

// SchedulerPBSConfig configures the PBS-style adapter.
type SchedulerPBSConfig struct {
	ScriptsDir     string `mapstructure:"scripts_dir"`
	QueueDir       string `mapstructure:"queue_dir"`
	CmdTimeoutSecs int64  `mapstructure:"cmd_timeout_seconds"`
}

// SchedulerSSHConfig configures the SSH-dispatched adapter.
type SchedulerSSHConfig struct {
	Addr          string `mapstructure:"addr"`
	User          string `mapstructure:"user"`
	KeyPath       string `mapstructure:"key_path"`
	RemoteWorkDir string `mapstructure:"remote_work_dir"`
	QueueDir      string `mapstructure:"queue_dir"`
}

// AdminConfig configures the read-only admin HTTP surface.
type AdminConfig struct {
	Addr            string  `mapstructure:"addr"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// SleepTime returns config_sleep_time as a Duration.
func (c Config) SleepTime() time.Duration {
	return time.Duration(c.ConfigSleepTime) * time.Second
}

// ShutdownTime returns config_shutdown_time as a Duration.
func (c Config) ShutdownTime() time.Duration {
	return time.Duration(c.ConfigShutdownTime) * time.Second
}

// GatePaths builds the gatefs.Paths record, one field per gate_path_*
// configuration key, plus the configured canonical state directories.
func (c Config) GatePaths() gatefs.Paths {
	states := make(map[string]string, len(c.ServiceStates))
	for _, s := range c.ServiceStates {
		states[s] = s
	}
	return gatefs.Paths{
		Jobs:   c.GatePathJobs,
		Opts:   c.GatePathOpts,
		Exit:   c.GatePathExit,
		Stop:   c.GatePathStop,
		Delete: c.GatePathDelete,
		Output: c.GatePathOutput,
		Dump:   c.GatePathDump,
		States: c.resolveStateDirs(),
	}
}

func (c Config) resolveStateDirs() map[string]string {
	// State directories live alongside jobs/, sharing its parent, since the
	// spec names them by service_states rather than individual gate_path_*
	// keys.
	dirs := make(map[string]string, len(c.ServiceStates))
	parent := filepath.Dir(c.GatePathJobs)
	for _, s := range c.ServiceStates {
		dirs[s] = filepath.Join(parent, s)
	}
	return dirs
}

// QuotaConfigs converts the configured per-service policies into the
// quota package's Config records, in hours-as-Duration form.
func (c Config) QuotaConfigs() map[string]quota.Config {
	out := make(map[string]quota.Config, len(c.Services))
	for name, sc := range c.Services {
		out[name] = quota.Config{
			QuotaMB:     sc.QuotaMB,
			JobSizeMB:   sc.JobSizeMB,
			MinLifetime: time.Duration(sc.MinLifetime) * time.Hour,
			MaxLifetime: time.Duration(sc.MaxLifetime) * time.Hour,
			MaxRuntime:  time.Duration(sc.MaxRuntime) * time.Hour,
		}
	}
	return out
}

// LoadSchemas reads every configured service's request schema document.
func (c Config) LoadSchemas() (map[string]*schema.ServiceSchema, error) {
	out := make(map[string]*schema.ServiceSchema, len(c.Services))
	for name, sc := range c.Services {
		s, err := schema.Load(name, sc.SchemaPath)
		if err != nil {
			return nil, fmt.Errorf("config: load schema for %s: %w", name, err)
		}
		out[name] = s
	}
	return out
}

// Load reads configuration from path (if non-empty) plus any matching
// GATEQUEUE_-prefixed environment variables, which take precedence over
// the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEQUEUE")
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_sleep_time", 30)
	v.SetDefault("config_shutdown_time", 60)
	v.SetDefault("cleanup_pool_size", 4)
	v.SetDefault("cleanup_queue_size", 64)
	v.SetDefault("service_states", []string{
		"waiting", "queued", "running", "closing", "cleanup",
		"done", "failed", "aborted", "killed",
	})
	v.SetDefault("admin.addr", ":8080")
	v.SetDefault("admin.rate_limit_per_sec", 5.0)
	v.SetDefault("admin.rate_limit_burst", 10)
	v.SetDefault("pbs.cmd_timeout_seconds", 30)
}

// Validate checks that every required key the daemon cannot run without
// was actually supplied.
func (c Config) Validate() error {
	if c.GatePathJobs == "" {
		return fmt.Errorf("config: gate_path_jobs is required")
	}
	if len(c.ConfigSchedulers) == 0 {
		return fmt.Errorf("config: config_schedulers must name at least one scheduler")
	}
	if len(c.ServiceStates) == 0 {
		return fmt.Errorf("config: service_states must not be empty")
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("config: at least one service must be configured")
	}
	for name, sc := range c.Services {
		if sc.SchemaPath == "" {
			return fmt.Errorf("config: service %s missing schema_path", name)
		}
	}
	return nil
}

