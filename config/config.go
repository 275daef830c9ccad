package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odpch/pkgcheck/core"
)

// a type with catalog site configuration parameters
type siteConfig struct {
	// base URL of the catalog being audited
	URL string `yaml:"url"`
	// API key used for catalog action API calls that require one
	APIKey string `yaml:"api_key"`
}

// a type with report service configuration parameters
type serviceConfig struct {
	// port on which the report service listens
	Port int `yaml:"port"`
	// maximum number of allowed incoming connections
	MaxConnections int `yaml:"max_connections"`
	// base64 fernet key used to verify report service access tokens
	FernetKey string `yaml:"fernet_key"`
}

// a type with checker selection parameters
type checkersConfig struct {
	// the checker kinds active for this run ("link", "shacl")
	Active []string `yaml:"active"`
}

// a type with run output parameters
type outputConfig struct {
	// directory under which run directories are created
	Directory string `yaml:"directory"`
	// path of the SQLite run journal
	Journal string `yaml:"journal"`
}

// a type with logging parameters
type loggingConfig struct {
	// minimum level for the structured log ("DEBUG", "INFO", "WARN", "ERROR")
	Level string `yaml:"level"`
}

// a type with message file parameters
type messagesConfig struct {
	// name of the per-contact message CSV inside a run directory
	Msgfile string `yaml:"msgfile"`
}

// global config variables
var Site siteConfig
var Service serviceConfig
var Checkers checkersConfig
var Output outputConfig
var Logging loggingConfig
var Messages messagesConfig
var LinkChecker linkCheckerConfig
var ShaclChecker shaclCheckerConfig
var Contacts contactsConfig

// This struct performs the unmarshalling from the YAML config file and then
// copies its fields to the globals above.
type configFile struct {
	Site         siteConfig         `yaml:"site"`
	Service      serviceConfig      `yaml:"service"`
	Checkers     checkersConfig     `yaml:"checkers"`
	Output       outputConfig       `yaml:"output"`
	Logging      loggingConfig      `yaml:"logging"`
	Messages     messagesConfig     `yaml:"messages"`
	LinkChecker  linkCheckerConfig  `yaml:"linkchecker"`
	ShaclChecker shaclCheckerConfig `yaml:"shaclchecker"`
	Contacts     contactsConfig     `yaml:"contacts"`
}

// This helper reads a configuration file, returning an error indicating
// success or failure. All environment variables of the form ${ENV_VAR} are
// expanded.
func readConfig(bytes []byte) error {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	var conf configFile
	conf.Service.Port = 8080
	conf.Service.MaxConnections = 100
	conf.Logging.Level = "INFO"
	conf.Messages.Msgfile = "messages.csv"
	conf.LinkChecker.Csvfile = "linkchecker.csv"
	conf.LinkChecker.Timeout = 30
	conf.ShaclChecker.Csvfile = "shaclchecker.csv"
	err := yaml.Unmarshal(bytes, &conf)
	if err != nil {
		log.Printf("Couldn't parse configuration data: %s\n", err)
		return err
	}

	// copy the config data into place
	Site = conf.Site
	Service = conf.Service
	Checkers = conf.Checkers
	Output = conf.Output
	Logging = conf.Logging
	Messages = conf.Messages
	LinkChecker = conf.LinkChecker
	ShaclChecker = conf.ShaclChecker
	Contacts = conf.Contacts

	return err
}

// This helper validates the given configuration, returning an error that
// indicates success or failure. Configuration errors are fatal at startup,
// before any package is processed.
func validateConfig() error {
	if Site.URL == "" {
		return fmt.Errorf("No catalog site URL was provided!")
	}
	if Output.Directory == "" {
		return fmt.Errorf("No output directory was provided!")
	}
	if len(Checkers.Active) == 0 {
		return fmt.Errorf("No active checkers were provided!")
	}
	for _, kind := range Checkers.Active {
		if kind != core.ModeLink && kind != core.ModeShacl {
			return fmt.Errorf("Unknown checker kind: %s (must be '%s' or '%s')",
				kind, core.ModeLink, core.ModeShacl)
		}
		if kind == core.ModeShacl && ShaclChecker.Shapes == "" {
			return fmt.Errorf("The shacl checker is active but no shapes file was provided!")
		}
	}
	if Service.Port < 0 || Service.Port > 65535 {
		return fmt.Errorf("Invalid port: %d (must be 0-65535)", Service.Port)
	}
	if Service.MaxConnections <= 0 {
		return fmt.Errorf("Invalid max_connections: %d (must be positive)",
			Service.MaxConnections)
	}
	if Contacts.DefaultEmail == "" {
		return fmt.Errorf("No default contact email was provided!")
	}
	if LinkChecker.Timeout <= 0 {
		return fmt.Errorf("Invalid linkchecker timeout: %d (must be positive)",
			LinkChecker.Timeout)
	}
	return nil
}

// Initializes the package checker configuration using the given YAML byte
// data.
func Init(yamlData []byte) error {

	// Read the configuration from our YAML file.
	err := readConfig(yamlData)
	if err != nil {
		return err
	}

	// Validate the configuration.
	err = validateConfig()
	return err
}
