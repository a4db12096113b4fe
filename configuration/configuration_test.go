package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const configContent = `
keystore:
  type: pkcs12
  path: keystore.p12
  password: secret
  key:
    alias: invoice-signing
    password: secret2
directory:
  outgoing: out
  success: success
  error: error
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("reads all entries from an explicit path", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", configContent)

		cfg, err := Load(path)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, path, cfg.Source)
		assert.Equal(t, "pkcs12", cfg.Keystore.Type)
		assert.Equal(t, "keystore.p12", cfg.Keystore.Path)
		assert.Equal(t, "invoice-signing", cfg.Keystore.Key.Alias)
		assert.Equal(t, "out", cfg.Directory.Outgoing)
		assert.Equal(t, "error", cfg.Directory.Error)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("the environment variable takes precedence over the flag", func(t *testing.T) {
		envPath := writeConfig(t, "env.yaml", configContent)
		flagPath := writeConfig(t, "flag.yaml", configContent)

		os.Setenv(EnvConfigFile, envPath)
		defer os.Unsetenv(EnvConfigFile)

		cfg, err := Load(flagPath)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, envPath, cfg.Source)
	})

	t.Run("keystore type defaults to jks", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", "directory:\n  outgoing: out\n")

		cfg, err := Load(path)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "jks", cfg.Keystore.Type)
	})

	t.Run("it fails when no candidate exists", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.EqualError(t, err, "failed to resolve a configuration file")
	})

	t.Run("it fails on unparseable content instead of falling through", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", "keystore: [not: valid")

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestConfiguration_Validate(t *testing.T) {
	t.Run("every missing entry is reported at once", func(t *testing.T) {
		cfg := Configuration{}
		cfg.SetDefaults()

		err := cfg.Validate()
		if !assert.Error(t, err) {
			return
		}
		assert.Contains(t, err.Error(), "'directory.outgoing' is missing or empty")
		assert.Contains(t, err.Error(), "'directory.success' is missing or empty")
		assert.Contains(t, err.Error(), "'keystore.path' is missing or empty")
		assert.Contains(t, err.Error(), "'keystore.key.alias' is missing or empty")
	})

	t.Run("a complete configuration validates", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", configContent)
		cfg, err := LoadFromFile(path)
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, cfg.Validate())
	})
}
