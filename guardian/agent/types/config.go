package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	SourceTypeDokploy = "dokploy"
	SourceTypeCompose = "compose"
	SourceTypeHelm    = "helm"
	SourceTypeStatic  = "static"

	DefaultDokployTimeout    = 30 * time.Second
	DefaultDokployMaxRetries = 3
	DefaultWebhookTimeout    = 10 * time.Second
)

// Config struct
type Config struct {
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	Source        SourceConfig        `mapstructure:"source"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Log           LogConfig           `mapstructure:"log"`
}

type MonitorConfig struct {
	CheckInterval   time.Duration `mapstructure:"checkInterval" validate:"gt=0"`
	NominalStatuses []string      `mapstructure:"nominalStatuses" validate:"min=1,dive,required"`
	CompleteStatus  string        `mapstructure:"completeStatus" validate:"required"`
	EvictAbsent     bool          `mapstructure:"evictAbsent"`
}

type SourceConfig struct {
	Type    string         `mapstructure:"type" validate:"required,oneof=dokploy compose helm static"`
	Dokploy *DokployConfig `mapstructure:"dokploy,omitempty" validate:"required_if=Type dokploy"`
	Compose *ComposeConfig `mapstructure:"compose,omitempty"`
	Helm    *HelmConfig    `mapstructure:"helm,omitempty"`
	Static  *StaticConfig  `mapstructure:"static,omitempty" validate:"required_if=Type static"`
}

type DokployConfig struct {
	URL        string        `mapstructure:"url" validate:"required,url"`
	APIKey     string        `mapstructure:"apiKey" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries int           `mapstructure:"maxRetries" validate:"gte=0"`
}

type ComposeConfig struct {
	// Host is a docker host URL such as unix:///var/run/docker.sock or
	// tcp://10.0.0.5:2376. Empty uses DOCKER_HOST.
	Host       string `mapstructure:"host"`
	CaCertPath string `mapstructure:"caCertPath"`
	CertPath   string `mapstructure:"certPath"`
	KeyPath    string `mapstructure:"keyPath"`
	// Projects restricts monitoring to the named compose projects.
	Projects []string `mapstructure:"projects"`
}

type HelmConfig struct {
	KubeconfigPath string `mapstructure:"kubeconfigPath"`
	// Namespace restricts monitoring to one namespace, empty means all.
	Namespace string `mapstructure:"namespace"`
}

type StaticConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type NotificationsConfig struct {
	Webhook *WebhookConfig `mapstructure:"webhook,omitempty"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url" validate:"required,url"`
	Token   string            `mapstructure:"token"`
	Timeout time.Duration     `mapstructure:"timeout" validate:"gte=0"`
	Headers map[string]string `mapstructure:"headers"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// ConfigManager interface
type ConfigManager interface {
	LoadAndValidateConfig() (*Config, error)
}

// configManager implementation
type configManager struct {
	validator      *validator.Validate
	configFilePath string
}

// NewConfigManager creates a new ConfigManager. An empty path loads the
// configuration from defaults and environment variables only.
func NewConfigManager(completeFilePath string) ConfigManager {
	return &configManager{
		validator:      validator.New(),
		configFilePath: completeFilePath,
	}
}

// LoadAndValidateConfig loads the configuration
func (cm *configManager) LoadAndValidateConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindEnv(v); err != nil {
		return nil, NewConfigError(AgentOperationReadingConfig, fmt.Errorf("failed to bind environment: %w", err))
	}

	if cm.configFilePath != "" {
		v.SetConfigFile(cm.configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewConfigError(AgentOperationReadingConfig, fmt.Errorf("failed to read config file: %w", err)).
				WithContext("path", cm.configFilePath)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, NewConfigError(AgentOperationReadingConfig, fmt.Errorf("failed to unmarshal config: %w", err))
	}
	applyDefaults(&config, v)

	// Validate Config
	if err := cm.validateConfig(&config); err != nil {
		return nil, NewConfigError(AgentOperationReadingValidatingConfig, err)
	}

	return &config, nil
}

// validateConfig validates the configuration
func (cm *configManager) validateConfig(config *Config) error {
	err := cm.validator.Struct(config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Defaults must stay outside the optional pointer sections, otherwise viper
// materialises those sections and their validation kicks in.
func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.checkInterval", "60s")
	v.SetDefault("monitor.nominalStatuses", []string{"done", "running", "idle"})
	v.SetDefault("monitor.completeStatus", "done")
	v.SetDefault("monitor.evictAbsent", false)
	v.SetDefault("source.type", SourceTypeDokploy)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func bindEnv(v *viper.Viper) error {
	v.AutomaticEnv()

	bindings := map[string]string{
		"source.dokploy.url":        "DOKPLOY_API_URL",
		"source.dokploy.apiKey":     "DOKPLOY_API_KEY",
		"notifications.webhook.url": "WEBHOOK_URL",
		"monitor.checkInterval":     "CHECK_INTERVAL",
		"log.level":                 "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// applyDefaults fills the optional sections that exist. maxRetries keeps an
// explicit 0, which disables retries.
func applyDefaults(config *Config, v *viper.Viper) {
	if d := config.Source.Dokploy; d != nil {
		if d.Timeout == 0 {
			d.Timeout = DefaultDokployTimeout
		}
		if !v.IsSet("source.dokploy.maxRetries") {
			d.MaxRetries = DefaultDokployMaxRetries
		}
	}
	if w := config.Notifications.Webhook; w != nil && w.Timeout == 0 {
		w.Timeout = DefaultWebhookTimeout
	}
}
