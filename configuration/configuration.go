package configuration

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigFile names the environment variable that overrides the
// configuration file location.
const EnvConfigFile = "SIGNCLIENT_CONFIG"

// DefaultCandidates are tried in order when neither the environment variable
// nor the --config flag points to a file.
var DefaultCandidates = []string{"private-config.yaml", "config.yaml"}

// Configuration holds all settings consumed by a batch run. It is populated
// once at startup; the rest of the application never performs key lookups.
type Configuration struct {
	Keystore  KeystoreConfiguration  `mapstructure:"keystore"`
	Directory DirectoryConfiguration `mapstructure:"directory"`

	// Source is the path of the file the configuration was read from.
	Source string `mapstructure:"-"`
}

type KeystoreConfiguration struct {
	Type     string           `mapstructure:"type"`
	Path     string           `mapstructure:"path"`
	Password string           `mapstructure:"password"`
	Key      KeyConfiguration `mapstructure:"key"`
}

type KeyConfiguration struct {
	Alias    string `mapstructure:"alias"`
	Password string `mapstructure:"password"`
}

type DirectoryConfiguration struct {
	Outgoing string `mapstructure:"outgoing"`
	Success  string `mapstructure:"success"`
	Error    string `mapstructure:"error"`
}

func (config *Configuration) SetDefaults() {
	config.Keystore.Type = "jks"
}

// Validate checks all required entries together and reports every missing one
// in a single error, so an operator fixes the file in one go. PEM keystores
// carry neither passwords nor aliases, so those entries are only required
// for the encrypted store types.
func (config *Configuration) Validate() error {
	var result *multierror.Error
	required := []struct {
		key   string
		value string
	}{
		{"keystore.path", config.Keystore.Path},
		{"directory.outgoing", config.Directory.Outgoing},
		{"directory.success", config.Directory.Success},
		{"directory.error", config.Directory.Error},
	}
	if strings.ToLower(config.Keystore.Type) != "pem" {
		required = append(required, []struct {
			key   string
			value string
		}{
			{"keystore.password", config.Keystore.Password},
			{"keystore.key.alias", config.Keystore.Key.Alias},
			{"keystore.key.password", config.Keystore.Key.Password},
		}...)
	}
	for _, entry := range required {
		if entry.value == "" {
			result = multierror.Append(result, fmt.Errorf("the configuration entry '%s' is missing or empty", entry.key))
		}
	}
	return result.ErrorOrNil()
}

// Load resolves and reads the configuration file. Resolution order: the
// SIGNCLIENT_CONFIG environment variable, then the explicit flag path, then
// the default candidate files in the working directory. The first readable
// candidate wins; a candidate that exists but cannot be parsed is an error
// rather than a reason to fall through.
func Load(flagPath string) (*Configuration, error) {
	for _, candidate := range candidates(flagPath) {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		return LoadFromFile(candidate)
	}
	return nil, errors.New("failed to resolve a configuration file")
}

func LoadFromFile(path string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration file '%s'", path)
	}

	config := Configuration{}
	config.SetDefaults()
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse configuration file '%s'", path)
	}
	config.Source = path
	return &config, nil
}

func candidates(flagPath string) []string {
	return append([]string{os.Getenv(EnvConfigFile), flagPath}, DefaultCandidates...)
}
