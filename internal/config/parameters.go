// Package config provides a centralized entrypoint for the application parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"go.yaml.in/yaml/v3"
)

// Runtime modes.
const (
	ModeService = "service"
	ModeLambda  = "lambda"
)

var (
	// Global is a struct that contains the global configuration.
	Global global
	// CRM is a struct that contains the upstream CRM configuration.
	CRM crm
	// Service is a struct that contains the configuration for the service mode.
	Service service
	// Lambda is a struct that contains the configuration for the lambda mode.
	Lambda lambda
)

type global struct {
	// Mode is the runtime mode of the application.
	Mode string `yaml:"mode,omitempty" default:"lambda"`
	// Logging is a struct that contains the logging configuration.
	Logging struct {
		// Verbosity is the verbosity level of the application. It represents slog levels.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace is a flag that enables the caller trace in the logger.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`
}

type crm struct {
	APIBaseURL   string        `yaml:"apiBaseUrl,omitempty" default:"https://api.plannrcrm.com/api/v1"`
	TokenURL     string        `yaml:"tokenUrl,omitempty" default:"https://api.plannrcrm.com/oauth/token"`
	AuthorizeURL string        `yaml:"authorizeUrl,omitempty" default:"https://api.plannrcrm.com/oauth/authorize"`
	Timeout      time.Duration `yaml:"timeout,omitempty" default:"30s"`
	// CredentialsSource selects where the upstream credentials come from: 'env' or 'ssm'.
	CredentialsSource string `yaml:"credentialsSource,omitempty" default:"env"`
	// SSMKey names the SSM parameter holding the credentials JSON document.
	SSMKey string `yaml:"ssmKey,omitempty"`

	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
	AccessToken  string `yaml:"accessToken,omitempty"`
	AccountUUID  string `yaml:"accountUuid,omitempty"`
}

type service struct {
	Path        string        `yaml:"path,omitempty" default:"/api"`
	Addr        string        `yaml:"addr,omitempty"`
	Port        string        `yaml:"port,omitempty" default:"8080"`
	Timeout     time.Duration `yaml:"timeout,omitempty" default:"35s"`
	CORSOrigins []string      `yaml:"corsOrigins,omitempty"`
}

type lambda struct {
	PayloadType string `yaml:"payloadType,omitempty" default:"api-gateway-v2"`
	// Path is the prefix stripped from event paths. It matches the service default so both modes share routes.
	Path string `yaml:"path,omitempty" default:"/api"`
}

// SetDefaults sets the default values for the configuration.
func SetDefaults() error {
	return errors.Join(
		defaults.Set(&Global),
		defaults.Set(&CRM),
		defaults.Set(&Service),
		defaults.Set(&Lambda),
	)
}

// LoadFromFile loads the configuration from a file.
func LoadFromFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // If the file does not exist, we ignore it.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	if !fstat.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	type all struct {
		Global  global  `yaml:"global,omitempty"`
		CRM     crm     `yaml:"crm,omitempty"`
		Service service `yaml:"service,omitempty"`
		Lambda  lambda  `yaml:"lambda,omitempty"`
	}
	var a all
	if err = yaml.Unmarshal(content, &a); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
	}
	Global = a.Global
	CRM = a.CRM
	Service = a.Service
	Lambda = a.Lambda

	return nil
}

// Reset clears every section back to its zero value.
func Reset() {
	Global = global{}
	CRM = crm{}
	Service = service{}
	Lambda = lambda{}
}
