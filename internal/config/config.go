package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service   *ServiceConfig
	Auth      *AuthConfig
	Database  *DatabaseConfig
	OpenStack *OpenStackConfig
	Events    *EventsConfig
}

type ServiceConfig struct {
	Address  string `envconfig:"VM_API_ADDRESS" default:":8000"`
	Version  string `envconfig:"VM_API_VERSION" default:"1.0.0"`
	LogLevel string `envconfig:"VM_API_LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"VM_API_DEBUG" default:"false"`
}

type AuthConfig struct {
	APIKey string `envconfig:"VM_API_KEY" default:"dev-api-key-change-in-production"`
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver string `envconfig:"VM_API_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"VM_API_DB_DSN" default:"file:openstack_vm.db"`
}

type OpenStackConfig struct {
	// UseSimulator forces the in-process simulator regardless of credentials.
	UseSimulator bool `envconfig:"OS_USE_SIMULATOR" default:"true"`

	AuthURL           string `envconfig:"OS_AUTH_URL"`
	ProjectName       string `envconfig:"OS_PROJECT_NAME"`
	ProjectDomainName string `envconfig:"OS_PROJECT_DOMAIN_NAME" default:"Default"`
	Username          string `envconfig:"OS_USERNAME"`
	Password          string `envconfig:"OS_PASSWORD"`
	UserDomainName    string `envconfig:"OS_USER_DOMAIN_NAME" default:"Default"`
	RegionName        string `envconfig:"OS_REGION_NAME" default:"RegionOne"`

	// Application credentials, used instead of username/password when set.
	ApplicationCredentialID     string `envconfig:"OS_APPLICATION_CREDENTIAL_ID"`
	ApplicationCredentialSecret string `envconfig:"OS_APPLICATION_CREDENTIAL_SECRET"`
}

type EventsConfig struct {
	// NATSURL enables lifecycle event publishing when non-empty.
	NATSURL string `envconfig:"VM_API_NATS_URL"`
}

// CredentialsConfigured reports whether enough OpenStack credentials are set
// to build a real client.
func (c *OpenStackConfig) CredentialsConfigured() bool {
	if c.ApplicationCredentialID != "" && c.ApplicationCredentialSecret != "" {
		return c.AuthURL != ""
	}
	return c.AuthURL != "" && c.ProjectName != "" && c.Username != "" && c.Password != ""
}

func New() (*Config, error) {
	cfg := &Config{
		Service:   &ServiceConfig{},
		Auth:      &AuthConfig{},
		Database:  &DatabaseConfig{},
		OpenStack: &OpenStackConfig{},
		Events:    &EventsConfig{},
	}
	for _, section := range []any{cfg.Service, cfg.Auth, cfg.Database, cfg.OpenStack, cfg.Events} {
		if err := envconfig.Process("", section); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
