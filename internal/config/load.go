package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SAC_MONITOR_INTERVAL=30s.
const EnvPrefix = "SAC"

// Load reads defaults, then the optional config file (TOML, YAML or JSON by
// extension), then SAC_* environment variables. Later sources win.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("monitor.interval", d.Monitor.Interval)
	v.SetDefault("monitor.min_interval", d.Monitor.MinInterval)
	v.SetDefault("monitor.max_interval", d.Monitor.MaxInterval)
	v.SetDefault("monitor.batch_size", d.Monitor.BatchSize)
	v.SetDefault("monitor.frame_interval", d.Monitor.FrameInterval)
	v.SetDefault("monitor.fail_fast", d.Monitor.FailFast)

	v.SetDefault("capture.source", d.Capture.Source)
	v.SetDefault("capture.folder", d.Capture.Folder)
	v.SetDefault("capture.loop", d.Capture.Loop)

	v.SetDefault("classifier.kind", d.Classifier.Kind)
	v.SetDefault("classifier.model", d.Classifier.Model)
	v.SetDefault("classifier.api_key", d.Classifier.APIKey)
	v.SetDefault("classifier.context_files", d.Classifier.ContextFiles)
	v.SetDefault("classifier.idle_threshold", d.Classifier.IdleThreshold)

	v.SetDefault("database.enabled", d.Database.Enabled)
	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("daemon.pid_file", d.Daemon.PIDFile)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("web.host", d.Web.Host)
	v.SetDefault("web.port", d.Web.Port)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.channel", d.Redis.Channel)

	v.SetDefault("report.time_zone", d.Report.TimeZone)
}
