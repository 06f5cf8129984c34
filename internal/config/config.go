package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	s3store "github.com/dev-tams/s3cleanup/internal/storage/s3"
)

const (
	DefaultMarker        = "docker_backup"
	DefaultRetentionDays = 10
	DefaultSchedule      = "0 3 * * *"
	DefaultEnvFile       = ".env"

	StorageS3    = "s3"
	StorageLocal = "local"
)

type Config struct {
	AccessKey     string               `mapstructure:"access_key"`
	SecretKey     string               `mapstructure:"secret_key"`
	Bucket        string               `mapstructure:"bucket"`
	Endpoint      string               `mapstructure:"endpoint"`
	Region        string               `mapstructure:"region"`
	RetentionDays int                  `mapstructure:"retention_days"`
	Marker        string               `mapstructure:"marker"`
	DryRun        bool                 `mapstructure:"dry_run"`
	Storage       string               `mapstructure:"storage"`
	LocalPath     string               `mapstructure:"local_path"`
	Schedule      string               `mapstructure:"schedule"`
	MetricsAddr   string               `mapstructure:"metrics_addr"`
	Notifications []NotificationConfig `mapstructure:"notifications"`
}

type NotificationConfig struct {
	Type   string              `mapstructure:"type"`
	On     []string            `mapstructure:"on"`
	Config NotificationDetails `mapstructure:"config"`
}

type NotificationDetails struct {
	SMTPHost string            `mapstructure:"smtp_host"`
	SMTPPort int               `mapstructure:"smtp_port"`
	From     string            `mapstructure:"from"`
	To       string            `mapstructure:"to"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

type LoadOptions struct {
	// ConfigPath is an optional YAML file.
	ConfigPath string
	// EnvFile is loaded into the process environment before anything is read.
	// Empty means DefaultEnvFile, which may be absent.
	EnvFile string
}

// Load builds a Config from, in increasing priority: defaults, the YAML file,
// and the environment. The credentials come from the access_key and
// secret_key variables verbatim; everything else uses the S3CLEANUP_ prefix.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	_ = v.BindEnv("access_key", "access_key")
	_ = v.BindEnv("secret_key", "secret_key")
	v.SetEnvPrefix("S3CLEANUP")
	v.AutomaticEnv()

	if opts.ConfigPath != "" {
		v.SetConfigFile(opts.ConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ModifyConfig(&cfg)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("access_key", "")
	v.SetDefault("secret_key", "")
	v.SetDefault("bucket", "")
	v.SetDefault("endpoint", s3store.DefaultEndpoint)
	v.SetDefault("region", s3store.DefaultRegion)
	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("marker", DefaultMarker)
	v.SetDefault("dry_run", false)
	v.SetDefault("storage", StorageS3)
	v.SetDefault("local_path", "")
	v.SetDefault("schedule", DefaultSchedule)
	v.SetDefault("metrics_addr", "")
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ModifyConfig expands ${VAR} references so secrets can stay out of the YAML file.
func ModifyConfig(cfg *Config) {
	cfg.AccessKey = os.ExpandEnv(cfg.AccessKey)
	cfg.SecretKey = os.ExpandEnv(cfg.SecretKey)
	cfg.Bucket = os.ExpandEnv(cfg.Bucket)
	cfg.Endpoint = os.ExpandEnv(cfg.Endpoint)
	cfg.Region = os.ExpandEnv(cfg.Region)
	cfg.LocalPath = os.ExpandEnv(cfg.LocalPath)

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		for j := range nt.On {
			nt.On[j] = os.ExpandEnv(nt.On[j])
		}
		nt.Config.SMTPHost = os.ExpandEnv(nt.Config.SMTPHost)
		nt.Config.From = os.ExpandEnv(nt.Config.From)
		nt.Config.To = os.ExpandEnv(nt.Config.To)
		nt.Config.Username = os.ExpandEnv(nt.Config.Username)
		nt.Config.Password = os.ExpandEnv(nt.Config.Password)
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}
}
